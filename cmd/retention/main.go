// Command retention archives completed and cancelled reservations that
// have not changed for RETENTION_AFTER.  It is meant to run from cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/config"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/database"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/queue"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/repository"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/utils"
)

const actor = "system:retention"

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum run time")
	dryRun := flag.Bool("dry-run", false, "only report how many reservations would be archived")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := config.NewLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Store != config.StoreMySQL {
		log.Fatal("retention needs the mysql store", zap.String("store", cfg.Store))
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	reservations := repository.NewReservationRepo(db)
	engine := booking.New(booking.Deps{
		Catalog:   repository.NewResourceRepo(db),
		Customers: repository.NewCustomerRepo(db),
		Store:     reservations,
		Notifier:  queue.NewPublisher(cfg.RabbitMQURL, cfg.NotifyQueue).WithDialTimeout(cfg.NotifyDialTimeout),
	}, booking.Options{
		Clock:  booking.SystemClock{Location: cfg.Location},
		Logger: log.Named("booking"),
	})

	cutoff := time.Now().Add(-cfg.RetentionAfter)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- utils.RunWithTimeout(ctx, *timeout, func(ctx context.Context) error {
			if *dryRun {
				list, err := reservations.ListRetired(ctx, cutoff, 0)
				if err != nil {
					return err
				}
				log.Info("dry run", zap.Time("cutoff", cutoff), zap.Int("would_archive", len(list)))
				return nil
			}
			_, err := engine.ArchiveRetired(ctx, cutoff, actor)
			return err
		})
	}()

	select {
	case sig := <-sigChan:
		log.Warn("received signal; stopping", zap.String("signal", sig.String()))
		cancel()
		<-errChan
		os.Exit(130)
	case err := <-errChan:
		if err != nil {
			log.Error("retention failed", zap.Error(err))
			os.Exit(1)
		}
		log.Info("retention completed")
	}
}
