package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"autoflow/workshop-service/internal/models"
)

var accentColors = map[string]color.Attribute{
	"blue":   color.FgBlue,
	"orange": color.FgYellow,
	"red":    color.FgRed,
	"purple": color.FgMagenta,
	"green":  color.FgGreen,
}

// statusLabel renders the status label in its dashboard accent.
func statusLabel(status models.Status) string {
	attr, ok := accentColors[status.Accent()]
	if !ok {
		attr = color.FgHiBlack
	}
	return color.New(attr).Sprint(status.Label())
}

func printJobs(out io.Writer, jobs []models.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQUEUE\tREG\tCUSTOMER\tSERVICE\tBRAND\tSTATUS\tBRANCH\tPRIORITY")
	for _, job := range jobs {
		priority := ""
		if job.IsPriority {
			priority = color.New(color.FgHiRed).Sprint("yes")
		}
		fmt.Fprintf(w, "%d\t#%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			job.ID, job.QueueNumber, job.RegNumber, job.CustomerName,
			job.ServiceType, job.Brand, statusLabel(job.Status), job.Branch, priority)
	}
	_ = w.Flush()
}

func printJob(out io.Writer, job models.Job) {
	fmt.Fprintf(out, "#%d %s (%s) %s [%s] id=%d branch=%s\n",
		job.QueueNumber, job.RegNumber, job.CustomerName, job.ServiceType,
		statusLabel(job.Status), job.ID, job.Branch)
}
