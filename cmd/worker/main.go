package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/mari-gunting/booking-core/internal/audit"
	"github.com/mari-gunting/booking-core/internal/config"
	dbpkg "github.com/mari-gunting/booking-core/internal/db"
	infraRepo "github.com/mari-gunting/booking-core/internal/infra/repository"
	"github.com/mari-gunting/booking-core/internal/payments"
	"github.com/mari-gunting/booking-core/internal/scheduler"
)

func main() {

	cfg := config.Load()
	db := dbpkg.NewDB(cfg)

	clock := clockwork.NewRealClock()

	bookingRepo := infraRepo.NewBookingGormRepository(db)

	auditLogger := audit.New(db)
	auditDispatcher := audit.NewDispatcher(auditLogger)

	curlec := payments.NewCurlecClient(cfg.CurlecKeyID, cfg.CurlecKeySecret, cfg.CurlecAccountID)
	engine := payments.NewEngine(bookingRepo, curlec, auditDispatcher, clock, cfg.CaptureDelay)

	worker := scheduler.NewWorker(bookingRepo, engine, auditDispatcher, clock)

	s, err := worker.Start(cfg.WorkerPoll)
	if err != nil {
		log.Fatalf("failed to start worker: %v", err)
	}
	log.Printf("Worker polling every %s", cfg.WorkerPoll)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Worker shutting down")
	if err := s.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
}
