package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/medqa-ai/medqa/cmd/service"
)

func main() {
	godotenv.Load()

	root := &cobra.Command{
		Use:   "medqa",
		Short: "medqa",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("empty command")
		},
	}

	root.AddCommand(service.NewCommand(), service.NewChatCommand(), service.NewIndexCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
