// Package penenv models the on-disk state of the PenEnv application: the
// settings.yaml configuration, the command-template catalog (built-in plus
// custom_commands.yaml), and per-project target lists. The packaging tool
// needs this model to seed configuration shipped inside packages and to
// manage the user's custom command catalog from the command line; the GUI
// reads and writes the same files.
package penenv
