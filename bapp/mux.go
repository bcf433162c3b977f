package bapp

import (
	"net/http"

	"github.com/advdv/bresp"
	"go.uber.org/zap"
)

// Mux is an alias for bresp.ServeMux.
type Mux = bresp.ServeMux

// NewPipeline creates the pipeline requests are served with, sized by the environment.
func NewPipeline(env Environment, logs *zap.Logger, files bresp.FileSystem) *bresp.Pipeline {
	p := bresp.NewPipeline()
	p.Background = bresp.NewBackground(env.backgroundWorkers())
	p.MaxBodyBytes = env.maxBodyBytes()
	p.Files = files
	p.Logs = NewRespLogger(logs)
	return p
}

// NewMux creates a new Mux that serves with the given pipeline.
func NewMux(p *bresp.Pipeline) *Mux {
	return bresp.NewServeMuxWith(p, http.NewServeMux(), bresp.NewReverser())
}
