package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// cliSessionID is the shared session for terminal conversations.
const cliSessionID = "cli-1"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with Pachico from the terminal",
	Long:  `Starts an interactive conversation. Type 'quit' to exit.`,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// Log lines would interleave with the conversation, keep them in the file.
	app, err := buildApp(false)
	if err != nil {
		return err
	}
	defer app.close()

	fmt.Println("Pachico CLI - type 'quit' to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("User: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return nil
		}

		result, err := app.service.Invoke(context.Background(), cliSessionID, input)
		if err != nil {
			fmt.Println("Assistant: Sorry, something went wrong. Please try again.")
			continue
		}

		fmt.Printf("Assistant: %s\n", result.Text)
		for _, path := range result.ArtifactPaths {
			fmt.Printf("  [File] %s\n", path)
		}
	}
}
