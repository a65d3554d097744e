/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"huawei.com/gpu-info/pkg/config"
	"huawei.com/gpu-info/pkg/log"
	"huawei.com/gpu-info/pkg/telemetry"
)

// replaced in tests
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type snapshotOptions struct {
	format string
	force  bool
}

func addSnapshotFlags(fs *pflag.FlagSet, o *snapshotOptions) {
	fs.StringVarP(&o.format, "format", "o", "", "Output format (text, json, cbor), overrides the config file")
	fs.BoolVar(&o.force, "force", false, "Write cbor output even when stdout is a terminal")
}

func newSnapshotCmd() *cobra.Command {
	o := &snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Read every GPU once and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd.OutOrStdout(), o)
		},
	}
	addSnapshotFlags(cmd.Flags(), o)
	return cmd
}

func runSnapshot(out io.Writer, o *snapshotOptions) (err error) {
	format := cfg.Format
	if o.format != "" {
		format = o.format
	}
	switch format {
	case config.FormatText, config.FormatJSON:
	case config.FormatCBOR:
		if !o.force && isTerminal(out) {
			return errors.New("refusing to write cbor to a terminal, redirect the output or use --force")
		}
	default:
		return fmt.Errorf("the format [%s] is invalid, range[text,json,cbor]", format)
	}

	s, err := openSession(cfg.NvmlOptions()...)
	if err != nil {
		return fmt.Errorf("open nvml: %w", err)
	}
	defer func() {
		if shutdownErr := s.Shutdown(); shutdownErr != nil {
			log.Errorf("nvml shutdown failed: %v", shutdownErr)
			if err == nil {
				err = shutdownErr
			}
		}
	}()

	snap, err := telemetry.Sample(s)
	if err != nil {
		return err
	}
	log.Debugf("sampled %d devices", len(snap.Devices))
	return telemetry.Encode(out, snap, format)
}
