package main

import (
	"fmt"
	"os"

	"crm-access-engine/internal/config"

	"github.com/spf13/cobra"
)

// @title CRM Access Engine API
// @version 1.0
// @description Acceso a entidades del CRM, reglas dinámicas y claim del pool.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	v := config.NewViper()

	root := &cobra.Command{
		Use:   "crm-access-engine",
		Short: "Motor de acceso y claim de entidades del CRM",
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newServeCmd(v))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
