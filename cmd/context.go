package cmd

import (
	"fmt"
	"os"

	coa "github.com/emrgen/coa"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configFileName = "coa"
	configDir      = "./.tmp"
)

var (
	Token   string
	Address string
)

var contextCommand = &cobra.Command{
	Use:   "context",
	Short: "context commands",
}

func init() {
	contextCommand.AddCommand(setContextCommand())
	contextCommand.AddCommand(currentContextCommand())
	contextCommand.AddCommand(resetContextCommand())
}

type Context struct {
	Token   string `mapstructure:"token" json:"token"`
	Address string `mapstructure:"address" json:"address"`
}

// saves the admin token and service address to ./.tmp/coa.yml
func setContextCommand() *cobra.Command {
	var token string
	var address string
	command := &cobra.Command{
		Use:   "set",
		Short: "set context",
		Run: func(cmd *cobra.Command, args []string) {
			if token == "" {
				color.Red(`missing: --token`)
				return
			}
			if address == "" {
				address = coa.DefaultAddress
			}

			if err := writeContext(Context{Token: token, Address: address}); err != nil {
				fmt.Println("error writing config file: ", err)
				return
			}
			fmt.Println("context saved")
		},
	}

	command.Flags().StringVarP(&token, "token", "t", "", "admin token")
	command.Flags().StringVarP(&address, "address", "a", coa.DefaultAddress, "service address")

	return command
}

func currentContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "current",
		Short: "current context",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := readContext()
			if ctx.Token == "" {
				color.Yellow("no context set")
				return
			}
			fmt.Printf("address: %s\ntoken:   %s\n", ctx.Address, mask(ctx.Token))
		},
	}

	return command
}

func resetContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "reset",
		Short: "reset context",
		Run: func(cmd *cobra.Command, args []string) {
			if err := writeContext(Context{}); err != nil {
				fmt.Println("error writing config file: ", err)
				return
			}
			fmt.Println("context reset")
		},
	}

	return command
}

func writeContext(context Context) error {
	if err := ensureConfigFile(); err != nil {
		return err
	}

	viper.SetConfigName(configFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("yml")
	viper.Set("context", map[string]string{"token": context.Token, "address": context.Address})

	return viper.WriteConfig()
}

func readContext() Context {
	var ctx Context

	if err := ensureConfigFile(); err != nil {
		fmt.Println("error creating config file: ", err)
		return ctx
	}

	viper.SetConfigName(configFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("error reading config file: ", err)
	}

	if err := viper.UnmarshalKey("context", &ctx); err != nil {
		fmt.Println("error unmarshalling config file: ", err)
	}

	return ctx
}

// create file if it doesn't exist
func ensureConfigFile() error {
	path := configDir + "/" + configFileName + ".yml"
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	return file.Close()
}

func bindContextFlags(command *cobra.Command) {
	command.Flags().StringVarP(&Token, "token", "t", "", "admin token (defaults to the saved context)")
	command.Flags().StringVar(&Address, "address", "", "service address (defaults to the saved context)")
}

// newClient builds an API client from the flags, falling back to the saved context.
func newClient() *coa.Client {
	ctx := readContext()
	token, address := Token, Address
	if token == "" {
		token = ctx.Token
	}
	if address == "" {
		address = ctx.Address
	}
	return coa.NewClient(address, token)
}

func mask(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
