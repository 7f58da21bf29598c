package web

import (
	"fmt"
	"html/template"
	"io"

	"github.com/sweeney/dogwatch/internal/status"
)

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DogWatch Live Feed</title>
<style>
* { box-sizing: border-box; margin: 0; padding: 0; }
body { font-family: -apple-system, system-ui, sans-serif; background: #1a1a2e; color: #eee; padding: 16px; }
h1 { text-align: center; margin-bottom: 8px; font-size: 1.4em; }
.status { text-align: center; padding: 10px; border-radius: 8px; margin-bottom: 16px; font-weight: bold; }
.status.active { background: #2d6a4f; }
.status.privacy { background: #d63031; }
.status.idle { background: #636e72; }
.last-seen { text-align: center; color: #aaa; margin-bottom: 16px; }
.grid { display: grid; grid-template-columns: 1fr; gap: 12px; }
.grid img { width: 100%; border-radius: 8px; }
.timestamp { text-align: center; color: #888; font-size: 0.85em; margin-top: 4px; }
@media (min-width: 600px) { .grid { grid-template-columns: 1fr 1fr; } }
</style>
</head>
<body>
<h1>DogWatch</h1>
<div id="status" class="status {{.BannerClass}}">{{.Banner}}</div>
<div id="last-seen" class="last-seen">{{.LastSeen}}</div>
<div id="grid" class="grid"></div>
<script>
(function() {
  var statusEl = document.getElementById('status');
  var lastSeenEl = document.getElementById('last-seen');

  function apply(s) {
    if (s.privacy_mode) {
      statusEl.textContent = 'Privacy mode - person detected';
      statusEl.className = 'status privacy';
    } else if (s.dog_detected) {
      var count = s.dog_count || 1;
      statusEl.textContent = count + ' ' + (count === 1 ? 'dog' : 'dogs') + ' on couch!';
      statusEl.className = 'status active';
    } else {
      statusEl.textContent = 'Monitoring - no dog detected';
      statusEl.className = 'status idle';
    }
    lastSeenEl.textContent = s.last_dog_seen
      ? 'Last seen: ' + s.last_dog_seen
      : 'No dog sightings yet';
  }

  async function refreshFrames() {
    try {
      const frames = await (await fetch('/api/frames')).json();
      const grid = document.getElementById('grid');
      grid.innerHTML = '';
      frames.forEach(function(f) {
        const div = document.createElement('div');
        const img = document.createElement('img');
        img.src = '/frames/' + encodeURIComponent(f.name) + '?' + Date.now();
        img.alt = 'Dog detected at ' + f.time;
        const ts = document.createElement('div');
        ts.className = 'timestamp';
        ts.textContent = f.time;
        div.appendChild(img);
        div.appendChild(ts);
        grid.appendChild(div);
      });
    } catch (e) { console.error(e); }
  }

  function connect() {
    var scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(scheme + location.host + '/ws');
    ws.onmessage = function(ev) {
      try { apply(JSON.parse(ev.data)); } catch (e) {}
    };
    ws.onclose = function() { setTimeout(connect, 5000); };
  }

  refreshFrames();
  setInterval(refreshFrames, 3000);
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	data := struct {
		Banner      string
		BannerClass string
		LastSeen    string
	}{}

	switch {
	case snap.PrivacyMode():
		data.Banner = "Privacy mode - person detected"
		data.BannerClass = "privacy"
	case snap.DogDetected:
		count := snap.DogCount
		if count < 1 {
			count = 1
		}
		word := "dogs"
		if count == 1 {
			word = "dog"
		}
		data.Banner = fmt.Sprintf("%d %s on couch!", count, word)
		data.BannerClass = "active"
	default:
		data.Banner = "Monitoring - no dog detected"
		data.BannerClass = "idle"
	}

	if snap.LastDogSeen.IsZero() {
		data.LastSeen = "No dog sightings yet"
	} else {
		data.LastSeen = "Last seen: " + snap.LastDogSeen.Local().Format("2006-01-02 15:04:05")
	}

	indexTmpl.Execute(w, data)
}
