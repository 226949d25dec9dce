package controller

import (
	"bytes"
	"html/template"

	"github.com/labstack/echo/v4"
)

var oauthSuccessPage = template.Must(template.New("oauth_success").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Clover authorization complete</title></head>
<body>
<h1>Clover authorization complete</h1>
<p>The authorization code was saved for payment method <strong>{{.Name}}</strong>.</p>
<p>Return to the payment method settings and generate the access token.</p>
</body>
</html>
`))

var oauthErrorPage = template.Must(template.New("oauth_error").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Clover authorization failed</title></head>
<body>
<h1>Clover authorization failed</h1>
<p>{{.Error}}</p>
</body>
</html>
`))

type oauthSuccessData struct {
	Name string
}

type oauthErrorData struct {
	Error string
}

func renderPage(ctx echo.Context, statusCode int, page *template.Template, data any) error {
	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return err
	}
	return ctx.HTMLBlob(statusCode, buf.Bytes())
}
