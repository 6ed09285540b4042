// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/polystake/vault/api"
	"github.com/polystake/vault/backend"
	"github.com/polystake/vault/log"
	"github.com/polystake/vault/metrics"
	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/state"
	"github.com/polystake/vault/vault"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

var (
	vaultAccount    = poly.BytesToAddress([]byte("polystake-vault"))
	ownerAccount    = poly.BytesToAddress([]byte("polystake-owner"))
	treasuryAccount = poly.BytesToAddress([]byte("polystake-treasury"))
	devValidators   = []poly.Address{
		poly.BytesToAddress([]byte("polystake-validator-1")),
		poly.BytesToAddress([]byte("polystake-validator-2")),
	}
	devAccounts = []poly.Address{
		poly.BytesToAddress([]byte("polystake-dev-1")),
		poly.BytesToAddress([]byte("polystake-dev-2")),
		poly.BytesToAddress([]byte("polystake-dev-3")),
	}
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Vaultd",
		Usage:     "Polystake vault accounting daemon",
		Copyright: "2026 Polystake",
		Flags: []cli.Flag{
			dataDirFlag,
			persistFlag,
			apiAddrFlag,
			apiCorsFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			pprofFlag,
			epochIntervalFlag,
			yieldRateFlag,
			compoundEveryFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { log.Info("exited") }()

	initLogger(ctx)

	store, closeStore := openStore(ctx)
	defer closeStore()

	assets := backend.NewTokenLedger()
	allow := backend.NewAllowlist(true)
	sim := backend.NewSimulator(assets, vaultAccount, poly.StakeUnit)

	v := vault.New(vaultAccount, state.New(store), assets, allow, sim)
	if err := initVault(v); err != nil {
		return err
	}
	for _, account := range devAccounts {
		assets.Mint(account, new(big.Int).Mul(big.NewInt(1_000_000), poly.StakeUnit))
	}

	var metricsURL string
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		srv, url := startMetricsServer(ctx)
		metricsURL = url
		defer func() { log.Info("stopping metrics server..."); srv.Shutdown(context.Background()) }()
	}

	apiHandler := api.New(v, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		PprofOn:         ctx.Bool(pprofFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})
	apiSrv, apiURL := startAPIServer(ctx, apiHandler)
	defer func() { log.Info("stopping API server..."); apiSrv.Shutdown(context.Background()) }()

	printStartupMessage(apiURL, metricsURL)

	return runEpochLoop(ctx, handleExitSignal(), v, sim)
}

// initVault writes the dev configuration into a fresh state and leaves an
// already-initialized (persisted) state untouched.
func initVault(v *vault.Vault) error {
	owner, err := v.Owner()
	if err != nil {
		return err
	}
	if !owner.IsZero() {
		log.Info("reusing initialized vault state", "owner", owner)
		return nil
	}

	if err := v.Initialize(vault.Config{
		Owner:            ownerAccount,
		Treasury:         treasuryAccount,
		Phi:              1000,
		DistPhi:          500,
		StrictAllocation: true,
	}); err != nil {
		return err
	}
	for _, validator := range devValidators {
		if err := v.AddValidator(ownerAccount, validator, false); err != nil {
			return err
		}
	}
	if err := v.SetDefaultValidator(ownerAccount, devValidators[0]); err != nil {
		return err
	}
	return v.Commit()
}

// runEpochLoop drives the simulated staking backend: each tick advances one
// epoch and accrues yield on every validator's stake, periodically
// compounding it back into the vault.
func runEpochLoop(ctx *cli.Context, done context.Context, v *vault.Vault, sim *backend.Simulator) error {
	interval := time.Duration(ctx.Uint64(epochIntervalFlag.Name)) * time.Second
	yieldRate := new(big.Int).SetUint64(ctx.Uint64(yieldRateFlag.Name))
	compoundEvery := ctx.Uint64(compoundEveryFlag.Name)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var epochs uint64
	for {
		select {
		case <-done.Done():
			return nil
		case <-ticker.C:
		}

		sim.AdvanceEpochs(1)
		epochs++

		validators, err := v.Validators()
		if err != nil {
			return err
		}
		for _, validator := range validators {
			yield := new(big.Int).Mul(validator.StakedAmount, yieldRate)
			yield.Div(yield, new(big.Int).SetUint64(poly.FeePrecision))
			if yield.Sign() > 0 {
				sim.AccrueYield(validator.Address, yield)
			}
		}
		log.Debug("epoch advanced", "epochs", epochs)

		if compoundEvery == 0 || epochs%compoundEvery != 0 {
			continue
		}
		for _, validator := range validators {
			if err := v.CompoundRewards(ownerAccount, validator.Address); err != nil {
				log.Warn("compound failed", "validator", validator.Address, "err", err)
			}
		}
		if err := v.Commit(); err != nil {
			return err
		}
	}
}

func printStartupMessage(apiURL, metricsURL string) {
	fmt.Printf(`Starting %v
    Vault       [ %v ]
    Owner       [ %v ]
    Treasury    [ %v ]
    API portal  [ %v ]
`,
		fmt.Sprintf("Vaultd %s", fullVersion()),
		vaultAccount,
		ownerAccount,
		treasuryAccount,
		apiURL)
	if metricsURL != "" {
		fmt.Printf("    Metrics     [ %v ]\n", metricsURL)
	}
	for _, account := range devAccounts {
		fmt.Printf("    Dev account [ %v ]\n", account)
	}
}
