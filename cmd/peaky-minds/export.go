package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/politifan/school-peaky-minds/internal/application/startup"
	"github.com/politifan/school-peaky-minds/internal/domain/query"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

var exportFlags struct {
	output string
	course string
	from   string
	to     string
	search string
	status string
	source string
}

// exportCmd writes the admin CSV exports without going through HTTP.
var exportCmd = &cobra.Command{
	Use:       "export {leads|agreements|users}",
	Short:     "Write a CSV export to stdout or a file",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"leads", "agreements", "users"},
	RunE:      runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportFlags.output, "output", "o", "", "output file (default stdout)")
	f.StringVar(&exportFlags.course, "course", "", "only this course")
	f.StringVar(&exportFlags.from, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&exportFlags.to, "to", "", "last day, YYYY-MM-DD")
	f.StringVar(&exportFlags.search, "q", "", "free-text search")
	f.StringVar(&exportFlags.status, "status", "", "lead status")
	f.StringVar(&exportFlags.source, "source", "", "traffic source label")
}

func exportParams() query.Params {
	values := map[string]string{
		"course":    exportFlags.course,
		"date_from": exportFlags.from,
		"date_to":   exportFlags.to,
		"q":         exportFlags.search,
		"status":    exportFlags.status,
		"source":    exportFlags.source,
	}
	return query.ParseParams(func(key string) string { return values[key] })
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := startup.Initialize(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer c.Logger.Close()
	defer c.Close()

	var w io.Writer = cmd.OutOrStdout()
	if exportFlags.output != "" {
		file, err := os.Create(exportFlags.output)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	switch args[0] {
	case "leads":
		return c.AdminService.ExportRecords(ctx, records.KindLead, exportParams(), w)
	case "agreements":
		return c.AdminService.ExportRecords(ctx, records.KindAgreement, exportParams(), w)
	case "users":
		return c.AdminService.ExportUsers(ctx, w)
	default:
		return fmt.Errorf("unknown export %q", args[0])
	}
}
