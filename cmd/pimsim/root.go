// Package pimsim wires the pim/frontend configuration to a cobra CLI.
package pimsim

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pimsim/pimsim/pim"
	"github.com/pimsim/pimsim/pim/backend"
	"github.com/pimsim/pimsim/pim/frontend"
)

var (
	configPath string

	tracePath              string
	enableKVCache          bool
	staticWeightTrace      string
	numTokens              int
	kernelSliceOpsPerToken int
	clockRatio             int
	policyImpl             string
	logLevel               string

	kvCacheBanksStart int
	kvCacheBanksCount int
	maxKVPerBank      int
	localityWeight    float64
	activityThreshold float64

	headDim           int
	hiddenDim         int
	rowGranuleBytes   int64
	liveMapPadPerBank int
	maxFlatKernelOps  int
	reportPath        string

	channels      int
	bankGroups    int
	banksPerGroup int
	queueDepth    int
)

var rootCmd = &cobra.Command{
	Use:   "pimsim",
	Short: "PIM KV-cache placement and bank-conflict simulator",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Expand a trace and simulate KV-cache bank placement",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)

		var cfg frontend.Config
		if configPath != "" {
			// A YAML bundle replaces the per-field flags wholesale, mirroring
			// the teacher's LoadPolicyBundle: a bundle is a complete,
			// strictly-decoded configuration, not a patch over flag defaults.
			loaded, err := frontend.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		} else {
			cfg = frontend.Config{
				Path:                   tracePath,
				EnableKVCache:          enableKVCache,
				StaticWeightTracePath:  staticWeightTrace,
				NumTokens:              numTokens,
				KernelSliceOpsPerToken: kernelSliceOpsPerToken,
				ClockRatio:             clockRatio,
				KVCachePolicyImpl:      policyImpl,
				PolicyParams: pim.PolicyParams{
					KVCacheBanksStart:        kvCacheBanksStart,
					KVCacheBanksCount:        kvCacheBanksCount,
					MaxKVPerBank:             maxKVPerBank,
					LocalityWeight:           &localityWeight,
					ActivityThresholdPercent: &activityThreshold,
				},
				KVDataSizeConfig:  pim.KVDataSizeConfig{HeadDim: headDim, HiddenDim: hiddenDim},
				RowGranuleBytes:   rowGranuleBytes,
				LiveMapPadPerBank: liveMapPadPerBank,
				MaxFlatKernelOps:  maxFlatKernelOps,
				ReportPath:        reportPath,
			}
		}
		cfg = cfg.WithDefaults()

		fe := frontend.New(cfg)
		if err := fe.Load(); err != nil {
			return err
		}

		org := pim.Organization{ChannelCount: channels, BankGroupCount: bankGroups, BankCount: banksPerGroup}
		mem := backend.NewMemoryBackend(org, queueDepth)
		codegen := &backend.SymbolicCodegen{Org: org}

		if err := fe.Connect(mem, codegen); err != nil {
			return err
		}
		if err := fe.Expand(); err != nil {
			return err
		}
		fe.DeriveLiveWeightMap()
		if err := fe.Synthesize(); err != nil {
			return err
		}

		for {
			done, err := fe.Stream()
			if err != nil {
				return err
			}
			for {
				if _, ok := mem.DrainOne(); !ok {
					break
				}
			}
			if done {
				break
			}
		}

		if _, err := fe.Finalize(mem.CyclesElapsed()); err != nil {
			return err
		}
		logrus.Info("pim: run complete")
		return nil
	},
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML frontend config bundle; when set, replaces all other frontend flags below")
	runCmd.Flags().StringVar(&tracePath, "path", "", "upstream trace path (required)")
	runCmd.Flags().BoolVar(&enableKVCache, "enable-kv-cache", false, "enable the interleaved KV-cache stream")
	runCmd.Flags().StringVar(&staticWeightTrace, "static-weight-trace-path", "", "upstream static-layout trace (optional)")
	runCmd.Flags().IntVar(&numTokens, "num-tokens", frontend.DefaultNumTokens, "number of decode steps to synthesize")
	runCmd.Flags().IntVar(&kernelSliceOpsPerToken, "kernel-slice-ops-per-token", frontend.DefaultKernelSliceOpsPerToken, "kernel ops emitted per token; 0 = pure-KV mode")
	runCmd.Flags().IntVar(&clockRatio, "clock-ratio", 1, "tick-to-cycle ratio (required, > 0)")
	runCmd.Flags().StringVar(&policyImpl, "kv-cache-policy", "naive", "KV cache placement policy: naive, bank-partitioning, contention-aware, smart-locality")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "log level (debug, info, warn, error)")

	runCmd.Flags().IntVar(&kvCacheBanksStart, "kv-cache-banks-start", 0, "bank-partitioning: reserved range start")
	runCmd.Flags().IntVar(&kvCacheBanksCount, "kv-cache-banks-count", 0, "bank-partitioning: reserved range size (0 = N/4)")
	runCmd.Flags().IntVar(&maxKVPerBank, "max-kv-per-bank", 3, "contention-aware/smart-locality: per-bank KV cap")
	runCmd.Flags().Float64Var(&localityWeight, "locality-weight", 0.3, "smart-locality: locality bonus weight in [0,1]")
	runCmd.Flags().Float64Var(&activityThreshold, "activity-threshold-percent", 10, "smart-locality: locality-bonus band is [2x, 100-2x] percent activity")

	runCmd.Flags().IntVar(&headDim, "head-dim", 128, "attention head dimension")
	runCmd.Flags().IntVar(&hiddenDim, "hidden-dim", 4096, "hidden dimension")
	runCmd.Flags().Int64Var(&rowGranuleBytes, "row-granule-bytes", 8192, "row granule size in bytes")
	runCmd.Flags().IntVar(&liveMapPadPerBank, "live-map-pad-per-bank", 0, "live-weight-map fallback padding (0 = default 100, <0 = disabled)")
	runCmd.Flags().IntVar(&maxFlatKernelOps, "max-flat-kernel-ops", 0, "safety ceiling for the expanded kernel-op buffer (0 = default 5M)")
	runCmd.Flags().StringVar(&reportPath, "report-path", "", "optional zstd-compressed JSON report output path")

	runCmd.Flags().IntVar(&channels, "channels", 2, "DRAM channel count")
	runCmd.Flags().IntVar(&bankGroups, "bank-groups", 4, "bankgroups per channel")
	runCmd.Flags().IntVar(&banksPerGroup, "banks-per-group", 2, "banks per bankgroup")
	runCmd.Flags().IntVar(&queueDepth, "queue-depth", 64, "reference back-end accept-queue depth")

	rootCmd.AddCommand(runCmd)
}
