package spc

import (
	"os"

	"github.com/stvp/rollbar"
)

// ErrorReporter forwards unexpected errors, such as storage failures, to an external crash reporting service
type ErrorReporter interface {
	ReportError(err error)
}

type errorService struct{}

type noReports struct{}

func (noReports) ReportError(error) {}

func init() {
	switch env := os.Getenv("environment"); env {
	case "development":
		rollbar.Environment = "development"
	default:
		rollbar.Environment = "production"
	}
}

// NewErrorReporter returns a Rollbar reporter, or a reporter that drops everything when reports are disabled or no
// token is configured
func NewErrorReporter(c *Config) ErrorReporter {
	if c.NoErrorReports || c.RollbarToken == "" {
		return noReports{}
	}
	rollbar.Token = c.RollbarToken
	return errorService{}
}

// ReportError sends the error to Rollbar.  Delivery is asynchronous; call FlushErrorReports before exiting.
func (e errorService) ReportError(err error) {
	rollbar.Error(rollbar.ERR, err)
}

// FlushErrorReports blocks until queued error reports have been sent
func FlushErrorReports() {
	rollbar.Wait()
}
