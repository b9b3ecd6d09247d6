// Package manpage generates a roff-formatted man page for cpu-tracker.
//
// The man page is generated at runtime from the actual KeyRegistry and
// compiled-in version information, keeping documentation in sync with
// the code automatically.
//
// Usage:
//
//	cpu-tracker -man | man -l -
//	cpu-tracker -man > ~/.local/share/man/man1/cpu-tracker.1
package manpage

import (
	"fmt"
	"strings"
	"time"

	"github.com/OpenMined/cpu-tracker-leader/display/tui"
)

// Generate produces a complete roff-formatted man(1) page for cpu-tracker.
// The version, commit, and date parameters are passed from the build-time
// linker variables so the man page always reflects the current build.
func Generate(version, commit, date string) string {
	var b strings.Builder

	writeHeader(&b, version)
	writeName(&b)
	writeSynopsis(&b)
	writeDescription(&b)
	writeOptions(&b)
	writeKeybindings(&b)
	writeConfiguration(&b)
	writeFiles(&b)
	writeExamples(&b)
	writeEnvironment(&b)
	writeExitStatus(&b)
	writeSeeAlso(&b)
	writeAuthors(&b)
	writeBugs(&b)
	writeFooter(&b, version, commit, date)

	return b.String()
}

// roffEscape escapes special roff characters in a string.
func roffEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `-`, `\-`)
	s = strings.ReplaceAll(s, `.`, `\&.`)
	return s
}

func writeHeader(b *strings.Builder, version string) {
	month := time.Now().Format("January 2006")
	fmt.Fprintf(b, ".TH CPU-TRACKER 1 \"%s\" \"cpu-tracker %s\" \"User Commands\"\n", month, version)
}

func writeName(b *strings.Builder) {
	b.WriteString(`.SH NAME
cpu\-tracker \- network\-wide CPU usage tracker for SyftBox datasites
`)
}

func writeSynopsis(b *strings.Builder) {
	b.WriteString(`.SH SYNOPSIS
.B cpu\-tracker
[\fIOPTIONS\fR]
`)
}

func writeDescription(b *strings.Builder) {
	b.WriteString(`.SH DESCRIPTION
.B cpu\-tracker
publishes this host's CPU usage into its SyftBox datasite, averages the
readings every peer in the network publishes the same way, and maintains a
rolling history of the network mean under the datasite's public folder.
Stale readings are excluded from the mean; a cycle that finds no fresh
reading at all records \-1 instead of a mean.
.PP
The tool operates in several modes:
.IP \(bu 2
.B One\-shot mode
(\fB\-once\fR): Runs a single aggregation cycle and exits. Suitable for
cron or an external scheduler.
.IP \(bu 2
.B Daemon mode
(\fB\-daemon\fR): Runs the aggregation cycle in a loop at the configured
poll interval. A PID file guards against double starts.
.IP \(bu 2
.B Banner mode
(\fB\-banner\fR): Renders a one\-shot status card with the live network
mean, the contributing peers, and a sparkline of the published history.
.IP \(bu 2
.B TUI mode
(\fB\-tui\fR): Launches an interactive Bubbletea dashboard with network
and history tabs and periodic refresh.
.IP \(bu 2
.B Health mode
(\fB\-health\fR): Checks whether the daemon completed a cycle recently.
Designed for monitoring scripts.
`)
}

func writeOptions(b *strings.Builder) {
	b.WriteString(`.SH OPTIONS
`)

	flags := []struct {
		flag string
		arg  string
		desc string
	}{
		{"once", "", "Run a single aggregation cycle and exit. The cycle publishes this host's reading, averages the fresh peers, and appends the mean to the published history."},
		{"daemon", "", "Run the background aggregation loop. Cycles repeat at the configured poll interval until the process receives SIGINT or SIGTERM. Managed by systemd (Linux) or launchd (macOS)."},
		{"banner", "", "Display the status card. Reads the same files the daemon writes and never writes anything itself, so it is safe to run while the daemon is mid-cycle."},
		{"tui", "", "Launch the interactive Bubbletea dashboard. Provides network and history tabs with keyboard navigation and periodic refresh."},
		{"health", "", "Check daemon health. Reads the health file from the runtime directory and verifies the daemon completed a cycle within twice the poll interval. Exit code 0 means healthy, 1 means stale or missing."},
		{"json", "", "Output health check results as JSON. Must be used with \\fB\\-health\\fR."},
		{"diagnose", "", "Run read-only diagnostics over the configuration, the datasites root, the published tracker files, and the daemon health, with suggested fixes for anything broken."},
		{"keys", "", "Show all registered dashboard keybindings in a formatted table."},
		{"format", "FORMAT", "Output format for \\fB\\-keys\\fR. FORMAT must be one of: table (default), json."},
		{"config", "PATH", "Path to the YAML configuration file. Default: ~/.config/cpu\\-tracker/config.yaml."},
		{"term\\-width", "N", "Override terminal width detection for banner mode. 0 (default) means auto-detect."},
		{"verbose", "", "Enable verbose (debug-level) logging."},
		{"version", "", "Print the version, commit hash, and build date, then exit."},
		{"man", "", "Print this man page to stdout in roff format. Pipe to man(1) for formatted viewing: \\fBcpu\\-tracker \\-man | man \\-l \\-\\fR."},
	}

	for _, f := range flags {
		b.WriteString(".TP\n")
		if f.arg != "" {
			fmt.Fprintf(b, ".BR \\-%s \" \\fI%s\\fR\"\n", f.flag, f.arg)
		} else {
			fmt.Fprintf(b, ".B \\-%s\n", f.flag)
		}
		b.WriteString(f.desc + "\n")
	}
}

func writeKeybindings(b *strings.Builder) {
	b.WriteString(`.SH KEYBINDINGS
The following keybindings are registered in the KeyRegistry and are the
single source of truth for dashboard input handling. They apply in TUI
mode (\fB\-tui\fR).
`)

	registry := tui.DefaultRegistry()

	categories := []struct {
		cat  tui.KeyCategory
		name string
	}{
		{tui.CategoryNavigation, "Navigation"},
		{tui.CategoryData, "Data"},
		{tui.CategorySystem, "System"},
	}

	for _, cat := range categories {
		entries := registry.ByCategory(cat.cat)
		if len(entries) == 0 {
			continue
		}

		fmt.Fprintf(b, ".SS %s\n", cat.name)
		for _, e := range entries {
			keysStr := strings.Join(e.Binding.Keys(), ", ")
			desc := e.Binding.Help().Desc
			fmt.Fprintf(b, ".TP\n.B %s\n%s (since %s)\n", roffEscape(keysStr), desc, e.Since)
		}
	}
}

func writeConfiguration(b *strings.Builder) {
	b.WriteString(`.SH CONFIGURATION
Configuration is read from a YAML file at
.B ~/.config/cpu\-tracker/config.yaml
by default, or from the path specified with \fB\-config\fR.
.PP
The configuration file is organized into the following settings:
.TP
.B datasite
This host's datasite identity, usually an email address. It names the
directory the tracker publishes into. Required.
.TP
.B root
The shared datasites directory containing one subdirectory per peer.
Default: ~/SyftBox/datasites.
.SS tracker
.TP
.B max_items
Maximum number of samples kept in the published history. Older samples
are dropped first. Default: 360.
.TP
.B stale_after
Duration after which a peer reading no longer counts toward the mean
(e.g., "1m", "90s"). Default: "1m".
.TP
.B assets_dir
Optional directory of .html files that override the embedded dashboard
pages published next to the history file.
.SS daemon
.TP
.B poll_interval
Duration between aggregation cycles (e.g., "10s", "1m"). Default: "10s".
.TP
.B log_file
Path for daemon log output. An empty value logs to stderr.
Default: ~/.local/log/cpu\-tracker.log.
`)
}

func writeFiles(b *strings.Builder) {
	b.WriteString(`.SH FILES
.TP
.I ~/.config/cpu\-tracker/config.yaml
Primary configuration file (YAML).
.TP
.I ~/.cache/cpu\-tracker/health.json
Daemon health status file, updated after each cycle.
.TP
.I ~/.cache/cpu\-tracker/cpu\-tracker.pid
PID file for the background daemon.
.TP
.I ~/.local/log/cpu\-tracker.log
Daemon log file.
.TP
.I <root>/<datasite>/api_data/cpu_tracker/cpu_tracker.json
This host's own published CPU reading.
.TP
.I <root>/<datasite>/public/cpu_tracker.json
The published rolling history of the network mean.
.TP
.I <root>/<datasite>/public/index.html
The published dashboard page.
`)
}

func writeExamples(b *strings.Builder) {
	b.WriteString(`.SH EXAMPLES
Run one aggregation cycle:
.PP
.nf
cpu\-tracker \-once
.fi
.PP
Start the background daemon:
.PP
.nf
cpu\-tracker \-daemon
.fi
.PP
Display the status card:
.PP
.nf
cpu\-tracker \-banner
.fi
.PP
Launch the interactive dashboard:
.PP
.nf
cpu\-tracker \-tui
.fi
.PP
Check daemon health:
.PP
.nf
cpu\-tracker \-health
cpu\-tracker \-health \-json | jq .mean
.fi
.PP
Diagnose a host that stopped publishing:
.PP
.nf
cpu\-tracker \-diagnose
.fi
.PP
Point one cycle at a different datasites root:
.PP
.nf
CPU_TRACKER_ROOT=/tmp/stage/datasites cpu\-tracker \-once
.fi
.PP
View this man page:
.PP
.nf
cpu\-tracker \-man | man \-l \-
.fi
.PP
Install the man page permanently:
.PP
.nf
cpu\-tracker \-man > ~/.local/share/man/man1/cpu\-tracker.1
.fi
`)
}

func writeEnvironment(b *strings.Builder) {
	b.WriteString(`.SH ENVIRONMENT
.TP
.B CPU_TRACKER_CONFIG
Override the path to the configuration file. The \fB\-config\fR flag
wins over it.
.TP
.B CPU_TRACKER_ROOT
Override the shared datasites root directory.
.TP
.B CPU_TRACKER_DATASITE
Override this host's datasite identity.
.PP
The root and datasite variables win over the config file. A .env file in
the working directory is loaded first; variables already set in the
environment win over .env values.
`)
}

func writeExitStatus(b *strings.Builder) {
	b.WriteString(".SH EXIT STATUS\n")
	b.WriteString(".TP\n.B 0\n")
	b.WriteString("Success. For \\fB\\-health\\fR, indicates the daemon is healthy.\n")
	b.WriteString(".TP\n.B 1\n")
	b.WriteString("Failure. For \\fB\\-health\\fR, indicates the daemon health is stale or missing.\n")
}

func writeSeeAlso(b *strings.Builder) {
	b.WriteString(`.SH SEE ALSO
.BR cron (8),
.BR systemctl (1),
.BR launchctl (1),
.BR jq (1)
`)
}

func writeAuthors(b *strings.Builder) {
	b.WriteString(`.SH AUTHORS
OpenMined <https://github.com/OpenMined>
`)
}

func writeBugs(b *strings.Builder) {
	b.WriteString(`.SH BUGS
Report bugs at <https://github.com/OpenMined/cpu\-tracker\-leader/issues>.
`)
}

func writeFooter(b *strings.Builder, version, commit, date string) {
	fmt.Fprintf(b, ".SH VERSION\n%s (%s) built %s\n", version, commit, date)
}
