package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/svcsim/svcsim/internal/scenario"
	"github.com/svcsim/svcsim/sim"
)

var validateConfigPath string
var validateScenarioID string
var validatePolicyBundlePath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load a scenario and policy bundle and report any errors without running the simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		if validateConfigPath == "" {
			logrus.Fatal("--config is required")
		}

		doc, err := scenario.Load(validateConfigPath)
		if err != nil {
			logrus.Fatalf("loading scenario: %v", err)
		}
		if validateScenarioID != "" && validateScenarioID != doc.Name {
			logrus.Fatalf("scenario %q not found in %s", validateScenarioID, validateConfigPath)
		}

		built, err := scenario.Build(doc)
		if err != nil {
			logrus.Fatalf("building scenario: %v", err)
		}

		if validatePolicyBundlePath != "" {
			bundle, err := sim.LoadClusterBundle(validatePolicyBundlePath)
			if err != nil {
				logrus.Fatalf("loading policy bundle: %v", err)
			}
			if err := bundle.Validate(); err != nil {
				logrus.Fatalf("invalid policy bundle: %v", err)
			}
		}

		fmt.Printf("scenario %q is valid: %d hosts, %d links, %d service chains, %d replicas\n",
			doc.Name, len(built.Cluster.Hosts), len(doc.Links), len(built.Chains), len(built.Replicas))
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "", "Path to the scenario configuration document")
	validateCmd.Flags().StringVar(&validateScenarioID, "scenario-id", "", "Name of the scenario to validate (must match the document's name)")
	validateCmd.Flags().StringVar(&validatePolicyBundlePath, "policy-bundle", "", "Path to a cluster policy bundle YAML file")
}
