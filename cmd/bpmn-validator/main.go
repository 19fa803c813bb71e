// Package main is the entry point for the BPMN validation service.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neicnordic/bpmn-validator/api"
	"github.com/neicnordic/bpmn-validator/config"
	"github.com/neicnordic/bpmn-validator/internal/commandexecutor"
	internalconfig "github.com/neicnordic/bpmn-validator/internal/config"
	"github.com/neicnordic/bpmn-validator/internal/health"
	"github.com/neicnordic/bpmn-validator/internal/lintconfig"
	"github.com/neicnordic/bpmn-validator/internal/observability"
	"github.com/neicnordic/bpmn-validator/internal/runner"
	"github.com/neicnordic/bpmn-validator/internal/stager"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "bpmn-validator"

// multipartOverhead is added to the upload size limit to get the request body limit
const multipartOverhead = 64 * 1024

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 5)
	signal.Notify(sigc, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	if err := internalconfig.Load(); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracing, err := observability.SetupTracing(ctx, serviceName, config.OtelEndpoint())
	if err != nil {
		log.Fatalf("failed to setup tracing: %v", err)
	}

	lintConfig, err := lintconfig.NewWriter(
		lintconfig.Dir(config.ValidatorWorkDir()),
		lintconfig.FileName(config.ValidatorConfigFile()),
		lintconfig.Extends(config.ValidatorExtends()),
	)
	if err != nil {
		log.Fatalf("failed to create linter configuration writer: %v", err)
	}
	if err := lintConfig.Write(); err != nil {
		log.Fatalf("failed to write linter configuration: %v", err)
	}
	log.Infof("created linter configuration file %s", lintConfig.Path())

	maxUploadSize, err := config.UploadMaxSize()
	if err != nil {
		log.Fatalf("%v", err)
	}

	uploadStager, err := stager.NewStager(
		stager.Dir(config.UploadDir()),
		stager.MaxSize(maxUploadSize),
	)
	if err != nil {
		log.Fatalf("failed to create upload stager: %v", err)
	}

	validationRunner, err := runner.NewRunner(
		runner.CommandExecutor(&commandexecutor.OsCommandExecutor{}),
		runner.LintConfig(lintConfig),
		runner.Command(config.ValidatorCommand(), config.ValidatorArgs()...),
		runner.Timeout(config.ValidatorTimeout()),
		runner.MaxConcurrent(config.ValidatorMaxConcurrent()),
	)
	if err != nil {
		log.Fatalf("failed to create validation runner: %v", err)
	}

	var maxRequestSize int64
	if maxUploadSize > 0 {
		maxRequestSize = maxUploadSize + multipartOverhead
	}

	validatorAPI, err := api.NewValidatorAPI(
		api.WithStager(uploadStager),
		api.WithRunner(validationRunner),
		api.WithTimeout(config.ValidatorTimeout()),
		api.WithMaxRequestSize(maxRequestSize),
		api.WithReadinessCheck("linter", func(context.Context) error {
			_, err := exec.LookPath(validationRunner.Command())

			return err
		}),
		api.WithReadinessCheck("config", func(context.Context) error {
			if !lintConfig.Present() {
				return fmt.Errorf("%s is missing", lintConfig.Path())
			}

			return nil
		}),
	)
	if err != nil {
		log.Fatalf("failed to create validator API: %v", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))

	if log.IsLevelEnabled(log.InfoLevel) {
		router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
			Formatter: func(params gin.LogFormatterParams) string {
				return fmt.Sprintf(`{"level":"info","method":"%s","path":"%s","status":%d,"latency":"%v","client_ip":"%s","time":"%s"}`+"\n",
					params.Method,
					params.Path,
					params.StatusCode,
					params.Latency,
					params.ClientIP,
					params.TimeStamp.Format(time.RFC3339),
				)
			},
			Output:    os.Stdout,
			SkipPaths: []string{"/health", "/health/ready", "/metrics"},
		}))
	}

	validatorAPI.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.APIHost(), config.APIPort()),
		Handler:           router,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		TLSNextProto:      make(map[string]func(*http.Server, *tls.Conn, http.Handler)),
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       5 * time.Minute,
		// a request may wait for a linter slot and then run the linter
		WriteTimeout: 2*config.ValidatorTimeout() + time.Minute,
	}

	go func() {
		var err error
		if config.APIServerCert() != "" && config.APIServerKey() != "" {
			log.Infof("server listening at: https://%s", srv.Addr)
			err = srv.ListenAndServeTLS(config.APIServerCert(), config.APIServerKey())
		} else {
			log.Infof("server listening at: http://%s", srv.Addr)
			err = srv.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server error: %v", err)
			cancel()
		}
	}()

	healthServer := health.NewServer()
	if config.HealthPort() != 0 {
		go func() {
			if err := healthServer.Start(config.HealthPort()); err != nil {
				log.Errorf("health server error: %v", err)
				cancel()
			}
		}()
	}
	healthServer.SetServingStatus(health.Serving)

	select {
	case <-sigc:
		log.Info("received shutdown signal")
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("shutting down server...")
	healthServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown error: %v", err)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Errorf("tracing shutdown error: %v", err)
	}

	log.Info("shutdown complete")
}
