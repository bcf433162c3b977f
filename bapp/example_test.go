package bapp_test

import (
	"io/fs"

	"github.com/advdv/bresp"
	"github.com/advdv/bresp/bapp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Env defines the environment variables for the application.
type Env struct {
	bapp.BaseEnvironment
	ReportsBucket string `env:"REPORTS_BUCKET,required"`
}

// ReportHandlers serve reports from a bucket in the primary region.
type ReportHandlers struct {
	rt *bapp.Runtime[Env]
	s3 *bapp.Primary[s3.Client]
}

func NewReportHandlers(rt *bapp.Runtime[Env], s3 *bapp.Primary[s3.Client]) *ReportHandlers {
	return &ReportHandlers{rt: rt, s3: s3}
}

// GetReport streams a report object to the client.
func (h *ReportHandlers) GetReport(c *bresp.Context) error {
	name := c.PathToken("name")
	bapp.Log(c).Info("sending report", zap.String("name", name))
	h.rt.Metrics().Counter("reports.sent").Inc()

	files := bapp.NewS3FileSystem(h.s3.Client, h.rt.Env().ReportsBucket, "reports")
	body, err := files.Open(c, name)
	if errors.Is(err, fs.ErrNotExist) {
		return bresp.NewError(bresp.CodeNotFound, err)
	} else if err != nil {
		return err
	}
	defer body.Close()

	return c.Response.SendReaderAs("text/csv", body)
}

func Example() {
	app := bapp.NewApp[Env](func(m *bapp.Mux, h *ReportHandlers) {
		m.HandleFunc("GET /reports/{name}", h.GetReport, "get-report")
	},
		bapp.WithAWSClient(func(cfg aws.Config) *bapp.Primary[s3.Client] {
			return bapp.NewPrimary(s3.NewFromConfig(cfg))
		}, bapp.ForPrimaryRegion()),
		bapp.WithFx(fx.Provide(NewReportHandlers)),
	)

	_ = app // app.Run() blocks until interrupted
}
