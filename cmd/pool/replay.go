package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"swapPool/internal/runner"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	if sess.cfg.OpsPath == "" {
		return fmt.Errorf("--ops is required")
	}

	r := runner.NewRunner(runner.RunConfig{
		OpsPath:           sess.cfg.OpsPath,
		CheckpointPath:    sess.cfg.CheckpointPath,
		CheckpointEnabled: sess.cfg.CheckpointEnabled,
		MaxRetries:        sess.cfg.MaxRetries,
		RetryBackoff:      sess.cfg.RetryBackoff,
	}, sess.state, sess.store, sess.logger)

	return r.Run(ctx)
}
