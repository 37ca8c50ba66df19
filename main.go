package main

import (
	auction "auction-core/internal/auctionService"
	"auction-core/internal/config"
	"auction-core/internal/keyedlock"
	"auction-core/internal/ledger"
	model "auction-core/internal/models"
	"auction-core/internal/repository"
	"auction-core/internal/scheduler"
	"auction-core/internal/server"
	settlement "auction-core/internal/settlementService"
	"auction-core/utils"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
)

func main() {
	conf := config.MustLoadConfig()
	utils.SetLevel(conf.LogLevel)
	gin.SetMode(conf.GinMode)

	store := repository.NewMemoryStore()
	creditLedger := ledger.NewCreditLedger()
	seedLedger(creditLedger)

	locks := keyedlock.NewTable()
	auctionSvc := auction.NewService(store, locks)
	settlementSvc := settlement.NewService(store, creditLedger, auctionSvc, locks)

	sched := scheduler.NewScheduler(store, settlementSvc)
	auctionSvc.OnSchedule(sched.Add)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		utils.Fatal("failed to start scheduler", map[string]any{"error": err.Error()})
	}

	router := server.SetupRouter(auctionSvc, settlementSvc)
	srv := &http.Server{
		Addr:    conf.RunAddress,
		Handler: router,
	}

	go func() {
		utils.Info("starting auction settlement server", map[string]any{"address": conf.RunAddress})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("server failed", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	if err := srv.Shutdown(context.Background()); err != nil {
		utils.Error("server shutdown failed", map[string]any{"error": err.Error()})
	}

	// Drain in-flight settlements before the process exits.
	sched.Stop()
}

// seedLedger registers simulated card accounts for the demo marketplace users
func seedLedger(creditLedger *ledger.CreditLedger) {
	cards := []model.CreditCardAccount{
		{Number: "4532-0001-0001-0001", OwnerID: "user1", Balance: 1000, Expiry: "12/27"},
		{Number: "4532-0002-0002-0002", OwnerID: "user2", Balance: 250, Expiry: "06/28"},
		{Number: "4532-0003-0003-0003", OwnerID: "user3", Balance: 100, Expiry: "09/27"},
		{Number: "4532-0004-0004-0004", OwnerID: "seller1", Balance: 0, Expiry: "03/29"},
	}

	for _, card := range cards {
		if err := creditLedger.Register(card); err != nil {
			utils.Warn("failed to seed card account", map[string]any{
				"owner_id": card.OwnerID,
				"error":    err.Error(),
			})
		}
	}
}
