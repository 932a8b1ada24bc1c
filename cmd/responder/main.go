package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"freeswap/internal/ledger"
	"freeswap/internal/responder"
	"freeswap/internal/vault"
	"freeswap/internal/wallet"
	"freeswap/pkg/config"
	"freeswap/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	var (
		account       = flag.String("account", "", "account name stored in the vault")
		pin           = flag.String("pin", "", "account PIN")
		password      = flag.String("password", os.Getenv("RESPONDER_PASSWORD"), "vault password (or RESPONDER_PASSWORD)")
		counterparty  = flag.String("counterparty", "", "address whose payments trigger replies")
		maxReceive    = flag.String("max-receive", "", "stop after this cumulative net amount is received, in coins")
		maxRespond    = flag.String("max-respond", "", "total amount paid back across the reply schedule, in coins")
		chunks        = flag.Int("chunks", 1, "number of reply payments max-respond is split into")
		receivedToken = flag.String("received-token", "", "token id watched for incoming balance (empty for base coin)")
		responseToken = flag.String("response-token", "", "token id used for reply payments (empty for base coin)")
		interval      = flag.Duration("interval", 0, "balance poll interval (defaults to RESPONDER_POLL_INTERVAL)")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.New("freeswap-responder")

	if *account == "" || *password == "" || *counterparty == "" {
		log.Fatal("Missing required flags", map[string]interface{}{
			"required": "-account, -password, -counterparty",
		})
	}

	receiveCap, err := decimal.NewFromString(*maxReceive)
	if err != nil {
		log.Fatal("Invalid -max-receive", map[string]interface{}{"error": err.Error()})
	}
	respondTotal, err := decimal.NewFromString(*maxRespond)
	if err != nil {
		log.Fatal("Invalid -max-respond", map[string]interface{}{"error": err.Error()})
	}
	pollInterval := cfg.Responder.PollInterval
	if *interval > 0 {
		pollInterval = *interval
	}

	vaults := vault.NewManager(cfg.Vault.Dir)
	node := ledger.NewClient(cfg.Node.URL, cfg.Node.Timeout, log)
	wallets := wallet.NewService(vaults, node, cfg.Node.HRP, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	acct, err := wallets.SignIn(ctx, *account, *pin, *password)
	if err != nil {
		log.Fatal("Sign-in failed", map[string]interface{}{
			"account": *account,
			"error":   err.Error(),
		})
	}
	defer acct.Close()

	balance := func(ctx context.Context) (decimal.Decimal, error) {
		micros, err := wallets.AvailableBalance(ctx, acct, *receivedToken)
		if err != nil {
			return decimal.Zero, err
		}
		return ledger.FromMicros(micros), nil
	}
	send := func(ctx context.Context, amount decimal.Decimal) error {
		_, err := wallets.Send(ctx, acct, *counterparty, ledger.ToMicros(amount), *responseToken, "responder transaction")
		return err
	}

	run, err := responder.New(responder.Config{
		Counterparty: *counterparty,
		MaxReceive:   receiveCap,
		MaxRespond:   respondTotal,
		Chunks:       *chunks,
		Precision:    int32(cfg.Responder.Precision),
		PollInterval: pollInterval,
	}, balance, send, log)
	if err != nil {
		log.Fatal("Invalid responder configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	started := time.Now()
	summary, err := run.Run(ctx)
	if err != nil && summary == nil {
		log.Fatal("Responder aborted", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Responder finished", map[string]interface{}{
		"reason":           string(summary.Reason),
		"starting_balance": summary.StartingBalance.String(),
		"total_received":   summary.TotalReceived.String(),
		"total_responded":  summary.TotalResponded.String(),
		"chunks_sent":      summary.ChunksSent,
		"elapsed":          time.Since(started).String(),
	})
}
