package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prtracker/prdemo/schema"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().Bool("yaml", false, "Print the YAML message table instead of a summary")
}

var schemaCmd = &cobra.Command{
	Use:          "schema",
	Short:        "Show the message table used to decode demos",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		asYAML, err := cmd.Flags().GetBool("yaml")
		if err != nil {
			return err
		}
		if asYAML {
			contents := schema.DefaultYAML()
			if conf.SchemaFile != "" {
				contents, err = os.ReadFile(conf.SchemaFile)
				if err != nil {
					return err
				}
			}
			_, err = os.Stdout.Write(contents)
			return err
		}

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		fmt.Printf("version %d, %d messages\n\n", reg.Version(), reg.Len())
		for _, tag := range reg.Tags() {
			ms, _ := reg.Lookup(tag)
			fmt.Println(describeMessage(ms))
		}
		return nil
	},
}

func describeMessage(ms *schema.MessageSchema) string {
	fields := "opaque"
	if !ms.Opaque() {
		fields = ms.Fields.String()
	}
	repeat := ""
	if ms.Repeat {
		repeat = " (repeat)"
	}
	return fmt.Sprintf("0x%02x  %-22s%s %s", ms.Tag, ms.Name, repeat, fields)
}
