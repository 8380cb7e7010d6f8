package web

import (
	"html/template"
)

// pageData feeds the single page the web surface renders: the upload form,
// any error messages, and the players for a finished job.
type pageData struct {
	Messages        []string
	VocalsURL       string
	InstrumentalURL string
}

const indexHTML = `<!doctype html>
<html>
<head>
    <meta charset="utf-8">
    <title>Vocal Separator</title>
    <style>
        body { font-family: sans-serif; max-width: 800px; margin: 2rem auto; }
        .box { padding: 1rem; border: 1px solid #ccc; border-radius: 8px; }
        audio { width: 100%; margin-top: 0.5rem; }
        .error { color: red; }
    </style>
</head>
<body>
<h1>Vocal Separator</h1>
<div class="box">
    <form method="post" action="/separate" enctype="multipart/form-data">
        <p>Upload audio file:</p>
        <input type="file" name="file" accept="audio/*" required>
        <p><button type="submit">Separate</button></p>
    </form>
    {{if .Messages}}
    <ul class="error">
        {{range .Messages}}<li>{{.}}</li>{{end}}
    </ul>
    {{end}}
</div>
{{if or .VocalsURL .InstrumentalURL}}
<h2>Results</h2>
<div class="box">
    {{if .VocalsURL}}
    <h3>Vocals</h3>
    <audio controls src="{{.VocalsURL}}"></audio>
    <p><a href="{{.VocalsURL}}" download>Download vocals</a></p>
    {{end}}
    {{if .InstrumentalURL}}
    <h3>Instrumental</h3>
    <audio controls src="{{.InstrumentalURL}}"></audio>
    <p><a href="{{.InstrumentalURL}}" download>Download instrumental</a></p>
    {{end}}
</div>
{{end}}
</body>
</html>
`

func pageTemplate() *template.Template {
	return template.Must(template.New("index").Parse(indexHTML))
}
