package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirwalterjones/threads-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	addr := ":" + application.Cfg.Port
	application.Log.Info("Server listening", "addr", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- application.Run(addr) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			application.Log.Error("Server failed", "err", err.Error())
		}
	case sig := <-stop:
		application.Log.Info("Shutting down", "signal", sig.String())
	}
}
