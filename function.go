package cloudfunctions

import (
	"context"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"go.uber.org/zap"

	"github.com/pep299/article-bias-analyzer/internal/application"
	"github.com/pep299/article-bias-analyzer/internal/handlers"
	"github.com/pep299/article-bias-analyzer/internal/response"
)

func init() {
	functions.HTTP("AnalyzeBias", AnalyzeBias)
}

var (
	handlerMu sync.Mutex
	handler   http.Handler

	buildApp      = application.New
	startupLogger = newStartupLogger()
)

func newStartupLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger.Named("function")
}

// AnalyzeBias serves the HTTP API as a single function. The application
// is built on the first request and reused while the instance stays warm,
// so the session key survives between invocations.
func AnalyzeBias(w http.ResponseWriter, r *http.Request) {
	h, err := getHandler()
	if err != nil {
		startupLogger.Error("failed to create application", zap.Error(err))
		_ = response.WriteInternalError(w, "Internal server error")
		return
	}

	h.ServeHTTP(w, r)
}

// getHandler builds the application once. A failed build is not kept, so
// the next request tries again.
func getHandler() (http.Handler, error) {
	handlerMu.Lock()
	defer handlerMu.Unlock()

	if handler != nil {
		return handler, nil
	}

	app, err := buildApp(context.Background())
	if err != nil {
		return nil, err
	}
	handler = handlers.NewServer(app).SetupRoutes()
	return handler, nil
}
