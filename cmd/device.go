package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ferrocp/pkg/ferrocp"
)

func newDeviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device <path>",
		Short: "Classify a path's backing storage device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevice(cmd, args[0])
		},
	}
}

func runDevice(cmd *cobra.Command, path string) error {
	logger, _, cancel := setupCommand(cmd.Context())
	defer cancel()

	engine, err := ferrocp.New(ferrocp.Options{
		DeviceCacheTTL: cfg.Engine.DeviceCacheTTL,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	profile := engine.DeviceInfo(path)
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
