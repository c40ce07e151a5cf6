package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/svcsim/svcsim/internal/scenario"
	"github.com/svcsim/svcsim/sim"
)

var (
	configPath       string
	scenarioID       string
	policyBundlePath string
	maxSimTimeNs     float64
	saveAll          bool
	outputPath       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		if configPath == "" {
			logrus.Fatal("--config is required")
		}

		doc, err := scenario.Load(configPath)
		if err != nil {
			logrus.Fatalf("loading scenario: %v", err)
		}
		if scenarioID != "" && scenarioID != doc.Name {
			logrus.Fatalf("scenario %q not found in %s", scenarioID, configPath)
		}

		built, err := scenario.Build(doc)
		if err != nil {
			logrus.Fatalf("building scenario: %v", err)
		}

		bundle := sim.ClusterBundle{Placement: sim.PlacementConfig{Policy: "least-fit"}, Observers: []string{"request-lifecycle"}}
		if policyBundlePath != "" {
			loaded, err := sim.LoadClusterBundle(policyBundlePath)
			if err != nil {
				logrus.Fatalf("loading policy bundle: %v", err)
			}
			if err := loaded.Validate(); err != nil {
				logrus.Fatalf("invalid policy bundle: %v", err)
			}
			bundle = *loaded
		}

		policy, err := sim.NewPlacementPolicy(bundle.Placement)
		if err != nil {
			logrus.Fatalf("resolving placement policy: %v", err)
		}

		cfg := sim.DefaultSimulatorConfig()
		cfg.Seed = doc.Seed
		if maxSimTimeNs > 0 {
			cfg.MaxSimTimeNs = maxSimTimeNs
		}

		s := sim.NewSimulator(built.Cluster, cfg, policy, built.Affinity, doc.Name)
		s.Profiles = built.Profiles
		s.Bus.Attach(sim.NewLogObserver())

		for _, replica := range built.Replicas {
			if err := s.RegisterReplica(replica); err != nil {
				logrus.Fatalf("placing replica %s: %v", replica.ID, err)
			}
		}
		for _, sc := range built.Chains {
			rate := built.Rates[sc.Name]
			s.AddArrivalStream(sim.NewArrivalStream(sc, rate))
		}

		logrus.Infof("starting simulation %q: %d hosts, %d service chains", doc.Name, len(built.Cluster.Hosts), len(built.Chains))
		s.Run()
		logrus.Info("simulation complete")

		result := s.Metrics.Result()
		if saveAll {
			writeResult(result)
		} else {
			fmt.Printf("completed=%d/%d avg_latency_ns=%.0f\n", result.SuccessfulRequests, result.TotalRequests, result.AvgLatencyNs)
		}
	},
}

func writeResult(result sim.ServiceChainResult) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logrus.Fatalf("marshaling result: %v", err)
	}
	if outputPath == "" {
		os.Stdout.Write(data)
		fmt.Println()
		return
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		logrus.Fatalf("writing result to %s: %v", outputPath, err)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to the scenario configuration document")
	runCmd.Flags().StringVar(&scenarioID, "scenario-id", "", "Name of the scenario to run (must match the document's name)")
	runCmd.Flags().StringVar(&policyBundlePath, "policy-bundle", "", "Path to a cluster policy bundle YAML file")
	runCmd.Flags().Float64Var(&maxSimTimeNs, "max-sim-time-ns", 0, "Stop the simulation after this much simulated time (0 = unbounded)")
	runCmd.Flags().BoolVar(&saveAll, "save-all", false, "Write the full result document instead of a one-line summary")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Path to write the result document (stdout if empty)")
}
