package http

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"
)

var viewportTmpl = template.Must(template.New("viewport").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>geoscene</title>
  <link rel="stylesheet" href="https://api.mapbox.com/mapbox-gl-js/v3.4.0/mapbox-gl.css">
  <style>
    html,body,#map{margin:0;height:100%;background:#05070d;color:#e6e9f0;font:14px system-ui,sans-serif}
    #loading{position:absolute;top:12px;left:50%;transform:translateX(-50%);padding:6px 12px;border-radius:4px;background:rgba(5,7,13,.8)}
    .popup h3{margin:0 0 2px;font-size:14px}.popup p{margin:0 0 6px;opacity:.7}
    .popup dl{display:grid;grid-template-columns:auto auto;gap:2px 12px;margin:0}.popup dd{margin:0;text-align:right}
  </style>
</head>
<body>
  <div id="map"></div>
  <div id="loading" hidden>Loading…</div>
  <script src="https://api.mapbox.com/mapbox-gl-js/v3.4.0/mapbox-gl.js"></script>
  <script>
    mapboxgl.accessToken = {{.Token}};
    const interactive = {{.Interactive}};
    let map, popup;

    function send(ws, msg) { if (ws.readyState === 1) ws.send(JSON.stringify(msg)); }

    function apply(op) {
      switch (op.op) {
        case 'style': location.reload(); break;
        case 'addSource': if (!map.getSource(op.source)) map.addSource(op.source, op.value); break;
        case 'setData': if (map.getSource(op.source)) map.getSource(op.source).setData(op.value); break;
        case 'addLayer': if (!map.getLayer(op.layer)) map.addLayer(op.value); break;
        case 'setLayoutProperty': if (map.getLayer(op.layer)) map.setLayoutProperty(op.layer, op.name, op.value); break;
        case 'setPaintProperty': if (map.getLayer(op.layer)) map.setPaintProperty(op.layer, op.name, op.value); break;
        case 'setFog': map.setFog(op.value); break;
        case 'easeTo': map.easeTo({center: [op.value.center.lon, op.value.center.lat], zoom: op.value.zoom,
          pitch: op.value.pitch, bearing: op.value.bearing, duration: op.durationMs}); break;
        case 'remove': document.body.textContent = 'Map closed.'; break;
      }
    }

    function render(state) {
      map.getCanvas().style.cursor = state.cursor || '';
      if (popup) { popup.remove(); popup = null; }
      const p = state.popup;
      if (!p || !p.anchor) return;
      const el = document.createElement('div');
      el.className = 'popup';
      const h = document.createElement('h3'); h.textContent = p.title; h.style.color = p.accent || ''; el.append(h);
      if (p.subtitle) { const s = document.createElement('p'); s.textContent = p.subtitle; el.append(s); }
      const dl = document.createElement('dl');
      for (const r of p.rows || []) {
        const dt = document.createElement('dt'); dt.textContent = r.label;
        const dd = document.createElement('dd'); dd.textContent = r.value;
        dl.append(dt, dd);
      }
      el.append(dl);
      popup = new mapboxgl.Popup({closeButton: true}).setLngLat([p.anchor.lon, p.anchor.lat]).setDOMContent(el).addTo(map);
    }

    async function start() {
      const style = await (await fetch({{.StylePath}})).json();
      map = new mapboxgl.Map({container: 'map', style, projection: 'globe', attributionControl: true});
      const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + {{.SocketPath}});
      ws.onmessage = (m) => {
        const msg = JSON.parse(m.data);
        if (msg.type === 'op') apply(msg.op);
        else if (msg.type === 'state') render(msg);
        else if (msg.type === 'resync' || msg.type === 'unavailable') setTimeout(() => location.reload(), 1000);
      };
      ws.onclose = () => setTimeout(() => location.reload(), 3000);

      const feature = (e) => e.features && e.features[0] ? e.features[0].properties : undefined;
      for (const id of interactive) {
        map.on('click', id, (e) => send(ws, {type: 'click', layer: id, properties: feature(e), lngLat: [e.lngLat.lng, e.lngLat.lat]}));
        map.on('mouseenter', id, () => send(ws, {type: 'mouseenter', layer: id}));
        map.on('mouseleave', id, () => send(ws, {type: 'mouseleave', layer: id}));
      }
      map.on('click', (e) => { if (!map.queryRenderedFeatures(e.point, {layers: interactive.filter((l) => map.getLayer(l))}).length) send(ws, {type: 'click'}); });
      map.on('zoomend', () => send(ws, {type: 'zoom', zoom: map.getZoom()}));
      map.on('error', (e) => send(ws, {type: 'error', message: (e.error && e.error.message) || ''}));

      setInterval(async () => {
        const s = await (await fetch({{.ScenePath}})).json();
        document.getElementById('loading').hidden = !s.isLoading;
      }, 2000);
    }
    start();
  </script>
</body>
</html>`))

var errorPanelTmpl = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body{margin:0;height:100vh;display:flex;align-items:center;justify-content:center;background:#05070d;color:#e6e9f0;font:15px system-ui,sans-serif}
    .panel{max-width:480px;padding:24px 28px;border:1px solid #2a3142;border-radius:8px;background:#0c111c}
    h1{margin:0 0 8px;font-size:18px}p{margin:0 0 8px;line-height:1.45}.hint{opacity:.7;font-size:13px}
  </style>
</head>
<body>
  <div class="panel" role="alert">
    <h1>{{.Title}}</h1>
    <p>{{.Detail}}</p>
    {{if .Hint}}<p class="hint">{{.Hint}}</p>{{end}}
  </div>
</body>
</html>`))

type viewportData struct {
	Token       string
	Interactive []string
	StylePath   string
	SocketPath  string
	ScenePath   string
}

// ViewportHandler serves the embeddable map page. An errored scene gets a
// static explanation panel instead of an empty map.
func ViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		status := fiber.StatusOK

		if ex, ok := deps.Scene.ErrorView(); ok {
			status = fiber.StatusServiceUnavailable
			if err := errorPanelTmpl.Execute(&buf, ex); err != nil {
				return errInternal(c, err.Error())
			}
		} else {
			err := viewportTmpl.Execute(&buf, viewportData{
				Token:       deps.MapToken,
				Interactive: deps.Scene.Registry().InteractiveLayers(),
				StylePath:   "/v1/scene/style",
				SocketPath:  "/ws",
				ScenePath:   "/v1/scene",
			})
			if err != nil {
				return errInternal(c, err.Error())
			}
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(status).Send(buf.Bytes())
	}
}
