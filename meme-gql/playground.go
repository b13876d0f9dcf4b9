package memegql

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

//go:embed playground.html
var playground string

var playgroundTemplate = template.Must(template.New("graphiql").Parse(playground))

// Playground serves a GraphiQL page that queries endpoint.
func Playground(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var buffer bytes.Buffer
		if err := playgroundTemplate.Execute(&buffer, endpoint); err != nil {
			zerolog.Ctx(req.Context()).Error().Err(err).Msg("failed to render graphiql")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buffer.Bytes())
	}
}
