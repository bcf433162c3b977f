package bapp_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/advdv/bresp"
	"github.com/advdv/bresp/bapp"
	"github.com/advdv/bresp/bapp/bapptest"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// TestEnv is a test environment with app-specific fields beyond BaseEnvironment.
type TestEnv struct {
	bapp.BaseEnvironment
	MainTableName string `env:"MAIN_TABLE_NAME,required"`
}

// Item is the body the item handlers parse and send.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Handlers demonstrates fx injection of the runtime and AWS clients.
type Handlers struct {
	rt *bapp.Runtime[TestEnv]
	s3 *s3.Client
}

func NewHandlers(rt *bapp.Runtime[TestEnv], s3 *s3.Client) *Handlers {
	return &Handlers{rt: rt, s3: s3}
}

func (h *Handlers) TestContext(c *bresp.Context) error {
	env := h.rt.Env()

	itemURL, err := h.rt.Reverse("get-item", "test-123")
	if err != nil {
		return err
	}

	bapp.Span(c).AddEvent("context-test")
	bapp.Log(c).Info("testing context features")

	return sendJSON(c, map[string]any{
		"table":        env.MainTableName,
		"service_name": env.ServiceName,
		"s3":           h.s3 != nil,
		"span_valid":   bapp.Span(c).SpanContext().IsValid(),
		"reversed_url": itemURL,
	})
}

func (h *Handlers) CreateItem(c *bresp.Context) error {
	item, err := bresp.Parse[Item](c, bresp.JSONOf[Item]())
	if err != nil {
		return err
	}

	h.rt.Metrics().Counter("items.created").Inc()
	bapp.Log(c).Info("creating item")

	c.Response.SetStatus(http.StatusCreated)
	return sendJSON(c, item)
}

func (h *Handlers) GetItem(c *bresp.Context) error {
	id := c.PathToken("id")
	selfURL, _ := h.rt.Reverse("get-item", id)

	return sendJSON(c, map[string]any{"id": id, "self_url": selfURL})
}

func (h *Handlers) GetFile(c *bresp.Context) error {
	return c.Response.SendFile(c, c.Background(), c.PathToken("name"))
}

func (h *Handlers) Slow(c *bresp.Context) error {
	<-c.Done()
	return c.Err()
}

func sendJSON(c *bresp.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Response.SendBytesAs("application/json", data)
}

// doGet performs an HTTP GET with the given context.
func doGet(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// doPost performs an HTTP POST with the given context and content type.
func doPost(ctx context.Context, client *http.Client, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return client.Do(req)
}

// setTestEnvForTestEnv sets the base env and the TestEnv specific vars.
func setTestEnvForTestEnv(t *testing.T, port int) *bapptest.Env {
	t.Helper()
	env := bapptest.SetBaseEnv(t, port)
	t.Setenv("MAIN_TABLE_NAME", "test-table")
	return env
}
