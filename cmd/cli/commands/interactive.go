package commands

import (
	"bufio"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// InteractiveCmd creates the interactive command
func InteractiveCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session at the registration desk (connect once, run many commands)",
		Long: `Start an interactive session where you can run multiple commands against one database connection.
The badge lock and configuration are shared by every command in the session.
The session will keep running until you type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\n🚀 Starting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			commands := siblingCommands(cmd)
			scanner := bufio.NewScanner(cmd.InOrStdin())

			for {
				fmt.Print("> ")

				if !scanner.Scan() {
					break
				}

				if !runLine(commands, scanner.Text()) {
					fmt.Println("👋 Goodbye!")
					return nil
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}

			return nil
		},
	}

	return cmd
}

// siblingCommands returns the commands that can be run from the session
func siblingCommands(cmd *cobra.Command) map[string]*cobra.Command {
	commands := make(map[string]*cobra.Command)
	for _, subCmd := range cmd.Parent().Commands() {
		switch subCmd.Name() {
		case "interactive", "completion", "help":
			continue
		}
		commands[subCmd.Name()] = subCmd
	}
	return commands
}

// runLine executes one line of input and reports whether the session should continue
func runLine(commands map[string]*cobra.Command, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	parts, err := parseCommandLine(line)
	if err != nil {
		fmt.Printf("❌ Error parsing command: %v\n\n", err)
		return true
	}
	if len(parts) == 0 {
		return true
	}
	cmdName, cmdArgs := parts[0], parts[1:]

	switch cmdName {
	case "exit", "quit":
		return false
	case "help":
		printInteractiveHelp(commands)
		return true
	}

	targetCmd, exists := commands[cmdName]
	if !exists {
		fmt.Printf("❌ Unknown command: %s (type 'help' for available commands)\n\n", cmdName)
		return true
	}

	// Flags keep their values between runs otherwise
	targetCmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
		_ = flag.Value.Set(flag.DefValue)
	})

	// RunE is called directly so PersistentPreRunE does not reconnect
	if err := targetCmd.ParseFlags(cmdArgs); err != nil {
		fmt.Printf("❌ Error parsing flags: %v\n\n", err)
		return true
	}
	cmdArgs = targetCmd.Flags().Args()

	if targetCmd.Args != nil {
		if err := targetCmd.Args(targetCmd, cmdArgs); err != nil {
			fmt.Printf("❌ Error: %v\n\n", err)
			return true
		}
	}

	if targetCmd.RunE != nil {
		if err := targetCmd.RunE(targetCmd, cmdArgs); err != nil {
			fmt.Printf("❌ Error: %v\n\n", err)
		}
	} else if targetCmd.Run != nil {
		targetCmd.Run(targetCmd, cmdArgs)
	}
	return true
}

func printInteractiveHelp(commands map[string]*cobra.Command) {
	fmt.Println("\nAvailable commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := commands[name]
		fmt.Printf("  %-50s %s\n", cmd.Use, cmd.Short)
	}

	fmt.Printf("\n  %-50s %s\n", "help", "Show this help message")
	fmt.Printf("  %-50s %s\n", "exit, quit", "Exit the interactive session")
}

// parseCommandLine splits a command line into arguments, respecting quoted strings.
// Supports both single and double quotes, so "Tech Ops" stays one argument.
func parseCommandLine(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var inQuote rune
	quoted := false

	for _, r := range line {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote = r
			quoted = true
		case unicode.IsSpace(r):
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(r)
		}
	}

	if inQuote != 0 {
		return nil, fmt.Errorf("unclosed quote: %c", inQuote)
	}

	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}

	return args, nil
}
