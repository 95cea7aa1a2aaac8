package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/martinialebarros-svg/fortcordis-v2-sub000/internal/domain/agenda"
)

// agendaCmd works on schedule files without a database, e.g. to check a
// config before it is uploaded.
func agendaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Normalize schedule files and check appointment slots offline",
	}

	normalizeCmd := &cobra.Command{
		Use:   "normalize",
		Short: "Print the canonical form of the given schedule files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			out, err := agenda.Serialize(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	addScheduleFlags(normalizeCmd)
	cmd.AddCommand(normalizeCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether an appointment range fits the agenda",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			return runCheck(cmd.OutOrStdout(), cfg, start, end)
		},
	}
	addScheduleFlags(checkCmd)
	checkCmd.Flags().String("start", "", "Appointment start, e.g. 2026-03-10T09:00")
	checkCmd.Flags().String("end", "", "Appointment end, e.g. 2026-03-10T09:30")
	cmd.AddCommand(checkCmd)

	return cmd
}

func addScheduleFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "JSON file with horario_semanal, feriados and excecoes")
	cmd.Flags().String("weekly", "", "JSON file with the weekly schedule (overrides --config)")
	cmd.Flags().String("holidays", "", "JSON file with the holiday list (overrides --config)")
	cmd.Flags().String("exceptions", "", "JSON file with the exception list (overrides --config)")
}

func configFromFlags(cmd *cobra.Command) (*agenda.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	weeklyPath, _ := cmd.Flags().GetString("weekly")
	holidaysPath, _ := cmd.Flags().GetString("holidays")
	exceptionsPath, _ := cmd.Flags().GetString("exceptions")
	return loadScheduleFiles(configPath, weeklyPath, holidaysPath, exceptionsPath)
}

// loadScheduleFiles builds a config from a combined file and per-part files.
// Missing paths fall back to defaults; unreadable files are an error.
func loadScheduleFiles(configPath, weeklyPath, holidaysPath, exceptionsPath string) (*agenda.Config, error) {
	var weekly, holidays, exceptions interface{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var combined map[string]json.RawMessage
		if err := json.Unmarshal(data, &combined); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
		if raw, ok := combined["horario_semanal"]; ok {
			weekly = []byte(raw)
		}
		if raw, ok := combined["feriados"]; ok {
			holidays = []byte(raw)
		}
		if raw, ok := combined["excecoes"]; ok {
			exceptions = []byte(raw)
		}
	}

	for _, part := range []struct {
		path string
		dst  *interface{}
	}{
		{weeklyPath, &weekly},
		{holidaysPath, &holidays},
		{exceptionsPath, &exceptions},
	} {
		if part.path == "" {
			continue
		}
		data, err := os.ReadFile(part.path)
		if err != nil {
			return nil, fmt.Errorf("read schedule file: %w", err)
		}
		if agenda.IsMalformed(data) {
			return nil, fmt.Errorf("%s is not valid JSON", part.path)
		}
		*part.dst = data
	}

	return agenda.NormalizeConfig(weekly, holidays, exceptions), nil
}

func runCheck(w io.Writer, cfg *agenda.Config, start, end string) error {
	if start == "" || end == "" {
		return fmt.Errorf("--start and --end are required")
	}
	startAt, err := agenda.ParseTimestamp(start)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	endAt, err := agenda.ParseTimestamp(end)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	allowed, reason := cfg.Validate(startAt, endAt)
	if !allowed {
		fmt.Fprintf(w, "rejected: %s\n", reason)
		return errSlotRejected
	}
	fmt.Fprintln(w, "allowed")
	return nil
}
