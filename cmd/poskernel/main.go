// Command poskernel is the reference CLI host for the POS transaction
// kernel (spec §6, SPEC_FULL §12): it discovers store profiles, runs the
// Schema Migration Runner against a store's catalog database, executes a
// single tool call through the Tool Executor, or drives a small built-in
// demo scenario end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"poskernel/pkg/config"
	"poskernel/pkg/ids"
	"poskernel/pkg/kernel"
	paymentsvc "poskernel/pkg/payment/domain/service"
	"poskernel/pkg/session"
	sessionsvc "poskernel/pkg/session/domain/service"
	"poskernel/pkg/storedb"
	"poskernel/pkg/storeext"
	"poskernel/pkg/storeprofile"
	"poskernel/pkg/tool"
	txsvc "poskernel/pkg/transaction/domain/service"

	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("poskernel: failed to load configuration")
	}
	if level, parseErr := log.ParseLevel(cfg.LogLevel); parseErr == nil {
		log.SetLevel(level)
	}

	app := &cli.App{
		Name:  "poskernel",
		Usage: "POS transaction kernel reference host",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "profiles",
				Value: cfg.StoreProfileIndexPath,
				Usage: "path to the store profile index",
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			toolCommand(),
			demoCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// app.Run already invoked the default ExitErrHandler for any
		// cli.ExitCoder error (migrate/tool/demo actions all return
		// those via cli.Exit with spec §6's codes); this branch only
		// catches a plain error surfacing from flag parsing itself.
		log.WithError(err).Error("poskernel: command failed")
		os.Exit(1)
	}
}

// loadProfiles implements spec §6's discovery exit codes: 2 when the
// index cannot be loaded at all, 3 when it loads but is empty.
func loadProfiles(path string) ([]storeprofile.Profile, error) {
	profiles, err := storeprofile.Load(path)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("poskernel: failed to load store profiles from %q: %v", path, err), 2)
	}
	if len(profiles) == 0 {
		return nil, cli.Exit(fmt.Sprintf("poskernel: no store profiles discovered in %q", path), 3)
	}
	return profiles, nil
}

func findProfile(profiles []storeprofile.Profile, storeID string) (*storeprofile.Profile, error) {
	for i := range profiles {
		if profiles[i].StoreID == storeID {
			return &profiles[i], nil
		}
	}
	return nil, cli.Exit(fmt.Sprintf("poskernel: no store profile named %q", storeID), 1)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "bring a store's catalog database to its required schema version",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Required: true, Usage: "storeId from the profile index"},
		},
		Action: func(c *cli.Context) error {
			profiles, err := loadProfiles(c.String("profiles"))
			if err != nil {
				return err
			}
			profile, err := findProfile(profiles, c.String("store"))
			if err != nil {
				return err
			}
			if profile.Database == nil {
				return cli.Exit(fmt.Sprintf("poskernel: store %q declares no database", profile.StoreID), 1)
			}

			driver := storedb.Driver(profile.Database.Type)
			runner := storedb.NewRunner(driver)
			info := baselineSchema(profile.StoreID)

			log.WithFields(log.Fields{"store": profile.StoreID, "db": profile.Database.ConnectionString}).
				Info("poskernel: running migrations")
			if err := runner.Run(context.Background(), profile.Database.ConnectionString, info); err != nil {
				log.WithError(err).Error("poskernel: migration failed")
				return cli.Exit(err.Error(), 1)
			}
			log.WithField("store", profile.StoreID).Info("poskernel: migrations up to date")
			return nil
		},
	}
}

func toolCommand() *cli.Command {
	return &cli.Command{
		Name:      "tool",
		Usage:     "execute one tool call through the Tool Executor against a store's catalog",
		ArgsUsage: "<toolName> [key=value ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Required: true, Usage: "storeId from the profile index"},
		},
		Action: func(c *cli.Context) error {
			args := c.Args().Slice()
			if len(args) == 0 {
				return cli.Exit("poskernel: tool requires a tool name", 1)
			}
			toolName := args[0]
			bag := tool.RawBag{}
			for _, kv := range args[1:] {
				parts := strings.SplitN(kv, "=", 2)
				if len(parts) != 2 {
					return cli.Exit(fmt.Sprintf("poskernel: malformed parameter %q, expected key=value", kv), 1)
				}
				bag[parts[0]] = parts[1]
			}

			profiles, err := loadProfiles(c.String("profiles"))
			if err != nil {
				return err
			}
			profile, err := findProfile(profiles, c.String("store"))
			if err != nil {
				return err
			}
			if profile.Database == nil {
				return cli.Exit(fmt.Sprintf("poskernel: store %q declares no database", profile.StoreID), 1)
			}

			db, err := storedb.Open(storedb.Driver(profile.Database.Type), profile.Database.ConnectionString)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer db.Close()

			sessions, engine := newReferenceEngine()
			s, err := sessions.CreateSession("TERM1", "OP1")
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			client := kernel.NewClient(sessions, engine)
			catalog := storeext.NewCatalog(db, nil)

			executor := tool.NewExecutor()
			active := &tool.ActiveTransaction{}
			if err := tool.RegisterCatalog(executor, client, catalog, string(s.ID), active); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			result, err := executor.Execute(toolName, bag)
			if err != nil {
				log.WithError(err).Error("poskernel: tool execution failed")
				return cli.Exit(err.Error(), 1)
			}
			fmt.Printf("%+v\n", result)
			return nil
		},
	}
}

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "run the S1 basic-lifecycle scenario end to end against the in-process kernel",
		Action: func(c *cli.Context) error {
			sessions, engine := newReferenceEngine()
			s, err := sessions.CreateSession("TERM1", "OP1")
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			client := kernel.NewClient(sessions, engine)

			result := client.StartTransaction(string(s.ID), "USD")
			if !result.Success {
				return cli.Exit(strings.Join(result.Errors, "; "), 1)
			}
			txID := string(result.Transaction.ID)

			result = client.AddLineItem(string(s.ID), txID, txsvc.AddLineItemRequest{
				ProductID: ids.ProductID("COFFEE.SMALL"),
				Quantity:  2,
				UnitPrice: mustDecimal("3.50"),
			})
			if !result.Success {
				return cli.Exit(strings.Join(result.Errors, "; "), 1)
			}

			result = client.ProcessPayment(string(s.ID), txID, mustDecimal("7.00"), "cash")
			if !result.Success {
				return cli.Exit(strings.Join(result.Errors, "; "), 1)
			}

			tx := result.Transaction
			fmt.Printf("state=%s total=%s tendered=%s changeDue=%s\n",
				tx.State, tx.Total, tx.Tendered, tx.ChangeDue)
			for _, line := range tx.Lines {
				fmt.Printf("  #%d %-8s %-20s qty=%d extended=%s voided=%t\n",
					line.LineNumber, line.LineType, line.ProductID, line.Quantity, line.Extended, line.IsVoided)
			}
			return nil
		},
	}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// newReferenceEngine wires the reference in-process bindings: an
// in-memory session repository and the default (cash-only-change)
// Payment Rules, matching spec §4.4's default policy.
func newReferenceEngine() (sessionsvc.Manager, txsvc.Engine) {
	repo := session.NewInMemoryRepository()
	manager := sessionsvc.NewManager(repo)
	validator := session.NewValidator(manager)
	engine := txsvc.NewEngine(validator, paymentsvc.DefaultRules())
	return manager, engine
}
