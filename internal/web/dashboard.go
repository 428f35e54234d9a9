package web

import (
	"net/http"
)

// dashboardHTML is a minimal live view over the /v1/events stream: request
// counts per scope and the reload log. Kept embedded so the binary has no
// asset directory to ship.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>radprep dashboard</title>
<style>
body { font-family: monospace; margin: 2em; background: #111; color: #ddd; }
h1 { font-size: 1.2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
td, th { border: 1px solid #444; padding: 4px 10px; text-align: left; }
#log { white-space: pre-wrap; color: #8c8; }
.err { color: #c88; }
</style>
</head>
<body>
<h1>radprep &mdash; live preprocessing events</h1>
<table>
<thead><tr><th>scope</th><th>requests</th><th>sentences</th><th>cache hits</th></tr></thead>
<tbody id="scopes"></tbody>
</table>
<div id="log"></div>
<script>
const scopes = {};
const log = document.getElementById("log");
const tbody = document.getElementById("scopes");

function render() {
  tbody.innerHTML = "";
  for (const [scope, s] of Object.entries(scopes)) {
    const tr = document.createElement("tr");
    tr.innerHTML = "<td>" + scope + "</td><td>" + s.requests + "</td><td>" +
      s.sentences + "</td><td>" + s.hits + "</td>";
    tbody.appendChild(tr);
  }
}

function append(line, cls) {
  const div = document.createElement("div");
  if (cls) div.className = cls;
  div.textContent = new Date().toISOString() + "  " + line;
  log.prepend(div);
  while (log.childNodes.length > 200) log.removeChild(log.lastChild);
}

function connect() {
  const proto = location.protocol === "https:" ? "wss://" : "ws://";
  const ws = new WebSocket(proto + location.host + "/v1/events");
  ws.onmessage = (msg) => {
    const ev = JSON.parse(msg.data);
    if (ev.type === "preprocess") {
      const scope = ev.data.version + "/" + ev.data.modality;
      const s = scopes[scope] || { requests: 0, sentences: 0, hits: 0 };
      s.requests++;
      s.sentences += ev.data.sentence_count;
      if (ev.data.cache_hit) s.hits++;
      scopes[scope] = s;
      render();
    } else if (ev.type === "rules_reload") {
      append("rules reloaded: " + JSON.stringify(ev.data.rule_counts));
    } else if (ev.type === "connection") {
      append(ev.data.message);
    }
  };
  ws.onclose = () => {
    append("event stream closed, reconnecting...", "err");
    setTimeout(connect, 3000);
  };
}
connect();
</script>
</body>
</html>
`

// ServeDashboard serves the embedded dashboard page
func ServeDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	w.Write([]byte(dashboardHTML))
}
