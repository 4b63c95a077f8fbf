package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/unlock-gate/internal/logic"
	"github.com/sweeney/unlock-gate/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"deref": func(f *float64) float64 {
		if f == nil {
			return 0
		}
		return *f
	},
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("15:04:05")
	},
}).Parse(indexHTML))

// light is one row of the condition table.
type light struct {
	ID     string
	Label  string
	Met    bool
	MetAt  time.Time
	Detail string
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Unlock Gate</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.lamp { display: inline-block; width: 12px; height: 12px; border-radius: 50%; background: #bbb; margin-right: 6px; vertical-align: middle; }
.lamp.met { background: green; }
.unlocked { color: green; font-weight: bold; }
.locked { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Unlock Gate{{if or .Config.WSBroker .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Conditions</h2>
<table>
{{range .Lights}}<tr><th><span id="lamp-{{.ID}}" class="lamp{{if .Met}} met{{end}}"></span>{{.Label}}</th><td id="detail-{{.ID}}">{{if .Met}}{{clock .MetAt}} {{.Detail}}{{end}}</td></tr>
{{end}}</table>
<p id="gate" class="{{if .Unlocked}}unlocked{{else}}locked{{end}}">{{if .Unlocked}}UNLOCKED{{else}}LOCKED{{end}} (<span id="met-count">{{.Gate.MetCount}}</span>/{{.Total}})</p>

<h2>Sensors</h2>
<table>
<tr><th>Speech</th><td>{{.Gate.SpeechCount}}</td></tr>
<tr><th>Tilt X</th><td>{{if .Gate.TiltX.Detected}}yes{{else}}no{{end}} ({{printf "%.2f" .Gate.TiltX.LastValue}})</td></tr>
<tr><th>Tilt Y</th><td>{{if .Gate.TiltY.Detected}}yes{{else}}no{{end}} ({{printf "%.2f" .Gate.TiltY.LastValue}})</td></tr>
<tr><th>Azimuth</th><td>{{if .Gate.Azimuth}}{{printf "%.1f" (deref .Gate.Azimuth)}}{{else}}-{{end}}</td></tr>
<tr><th>WiFi</th><td>{{if .Gate.Wifi}}{{.Gate.Wifi.NetworkCount}} networks{{if .Gate.Wifi.TargetFound}}, target seen{{end}}{{else}}-{{end}}</td></tr>
<tr><th>Camera</th><td>{{if .Color.Running}}running{{else}}stopped{{end}}, streak {{.Color.Hysteresis.PositiveStreak}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Session</th><td>{{.Gate.Session}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Button pin</th><td>{{if lt .Config.ButtonPin 0}}none{{else}}GPIO{{.Config.ButtonPin}}{{end}}</td></tr>
<tr><th>WiFi source</th><td>{{.Config.WifiSource}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/metrics">metrics</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
{{end}}{{if or .Config.WSBroker .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var gate = document.getElementById("gate");
  var count = document.getElementById("met-count");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function apply(payload) {
    try {
      var msg = JSON.parse(payload);
      if (!msg.gate) return;
      var lamp = document.getElementById("lamp-" + msg.gate.condition);
      if (lamp) lamp.className = "lamp met";
      var detail = document.getElementById("detail-" + msg.gate.condition);
      if (detail) detail.textContent = msg.gate.detail || "";
      count.textContent = msg.gate.met;
      if (msg.gate.all_met) {
        gate.className = "unlocked";
        gate.firstChild.textContent = "UNLOCKED (";
      }
    } catch (e) {}
  }
{{if .Config.WSBroker}}
  var client = mqtt.connect("{{.Config.WSBroker}}", { reconnectPeriod: 5000 });
  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe("unlock/gate/events");
  });
  client.on("reconnect", function() { setDot("pending", "reconnecting"); });
  client.on("offline", function() { setDot("err", "offline"); });
  client.on("error", function() { setDot("err", "error"); });
  client.on("message", function(t, payload) { apply(payload.toString()); });
{{else}}
  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onmessage = function(ev) { apply(ev.data); };
    ws.onclose = function() {
      setDot("pending", "reconnecting");
      setTimeout(connect, 5000);
    };
    ws.onerror = function() { setDot("err", "error"); };
  }
  connect();
{{end}}})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) {
	lights := make([]light, 0, logic.ConditionCount)
	for i, id := range logic.Conditions {
		lights = append(lights, light{
			ID:     string(id),
			Label:  id.Label(),
			Met:    snap.Gate.Latches[i],
			MetAt:  snap.Gate.MetAt[i],
			Detail: snap.Details[i],
		})
	}
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		Unlocked bool
		Lights   []light
		Total    int
		Live     bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Unlocked: snap.Unlocked() || snap.Gate.AllMet,
		Lights:   lights,
		Total:    logic.ConditionCount,
		Live:     live,
	}
	indexTmpl.Execute(w, data)
}
