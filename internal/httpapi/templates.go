package httpapi

import (
	"html/template"
	"io"
)

// indexData is the data fed to both the documentation page and the
// manual page.
type indexData struct {
	Root       string
	MinimumBPM float64
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>smugdancer</title></head>
<body>
<h1>smugdancer</h1>
<p>Serves a tempo-adjusted GIF of a looping animation.</p>
<p>Request a speed with <code>{{.Root}}/&lt;bpm&gt;.gif</code>.</p>
<p>The minimum supported BPM, below which the animation cannot slow down any further, is {{.MinimumBPM}}.</p>
<p>See <a href="/man">/man</a> for the full manual.</p>
</body>
</html>
`))

var manTemplate = template.Must(template.New("man").Parse(`<!DOCTYPE html>
<html>
<head><title>smugdancer manual</title></head>
<body>
<h1>smugdancer manual</h1>
<ul>
<li><code>GET /</code>, <code>GET /index.html</code> &mdash; this page's sibling, a short landing page.</li>
<li><code>GET /man</code> &mdash; this page.</li>
<li><code>GET /&lt;bpm&gt;</code> or <code>GET /&lt;bpm&gt;.gif</code> &mdash; the rendered GIF for the given tempo, quantized to the nearest supported speed. The minimum supported BPM is {{.MinimumBPM}}; requesting below it returns a slow-speed error, and requesting far above it returns a fast-speed error.</li>
</ul>
<p>Root: {{.Root}}</p>
</body>
</html>
`))

func renderIndex(w io.Writer, data indexData) error {
	return indexTemplate.Execute(w, data)
}

func renderMan(w io.Writer, data indexData) error {
	return manTemplate.Execute(w, data)
}
