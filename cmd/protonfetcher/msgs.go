package protonfetcher

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort = "Fetch, extract and link Proton releases for Steam"
	MsgRootLong = `protonfetcher downloads Proton releases (GE-Proton or Proton-EM) from
GitHub, unpacks them into your Steam compatibility tools directory, and
keeps three version symlinks (current plus two fallbacks) pointed at the
newest installed releases.`

	MsgFetchShort = "Download, extract and link a Proton release"
	MsgFetchLong = `Fetch downloads the latest release of the selected fork (or a specific
tag), extracts it into the compatibility tools directory and updates the
version symlinks. Work already done is skipped: existing archives of the
right size are not re-downloaded and unpacked releases are not
re-extracted.`

	MsgReleasesShort = "List the most recent release tags for the selected fork"
	MsgLinksShort    = "List the version symlinks and their targets"
	MsgRemoveShort   = "Remove an installed release and repoint the symlinks"
	MsgRelinkShort   = "Rebuild the version symlinks from installed releases"
	MsgConfigShort   = "Print the effective configuration"
	MsgVersionShort  = "Print version information"

	// Status messages
	MsgFetched        = "Fetched %s\n"
	MsgRemoved        = "Removed %s\n"
	MsgRelinked       = "Relinked %s\n"
	MsgLinksHeader    = "Links for %s:\n"
	MsgLinkItem       = "  %s -> %s\n"
	MsgLinkMissing    = "  %s -> (not found)\n"
	MsgReleasesHeader = "Recent releases:"
	MsgReleaseItem    = "  %s\n"
	MsgSlotFailed     = "  failed %s: %v\n"

	// Error messages
	MsgErrLoadConfig = "failed to load configuration: %w"
	MsgErrInitPaths  = "failed to initialize paths: %w"
	MsgErrNoCommand  = "no command specified"

	// Flag descriptions
	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagExtract = "Directory to extract releases to"
	MsgFlagOutput  = "Directory to download archives to"
	MsgFlagFork    = "Proton fork (GE-Proton or Proton-EM)"
	MsgFlagTag     = "Release tag to fetch instead of the latest"
)

// MsgUsageTemplate renders help with bold section headings.
const MsgUsageTemplate = `{{bold "Usage:"}}{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

{{bold "Aliases:"}}
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

{{bold "Examples:"}}
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

{{bold "Available Commands:"}}{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

{{bold "Flags:"}}
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

{{bold "Global Flags:"}}
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
