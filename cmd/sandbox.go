package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"

	"github.com/sluicedata/sluice/sluice"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Apply schema operations interactively",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(sandboxUsage)
		prompt.New(sandboxExecute, sandboxComplete, prompt.OptionPrefix("sluice> ")).Run()
	},
}

const sandboxUsage = "fields <name[:type]>..., project <fields>, discard <fields>, rename <from> <to>, copy <from> <to>, schema, exit"

var sandboxSchema sluice.Schema

func sandboxExecute(line string) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}
	command, args := words[0], words[1:]

	switch command {
	case "exit":
		fmt.Println("Exiting.")
		os.Exit(0)
	case "schema":
		fmt.Println(sandboxSchema)
	case "fields":
		fields := make([]sluice.Field, len(args))
		for i, arg := range args {
			name, typeName, _ := strings.Cut(arg, ":")
			t, err := sluice.ParseType(typeName)
			if err != nil {
				fmt.Println(err)
				return
			}
			fields[i] = sluice.Field{Name: name, Type: t}
		}
		apply(sluice.NewSchemaOfFields(fields))
	case "project":
		apply(sandboxSchema.Project(args...))
	case "discard":
		apply(sandboxSchema.Difference(args...), nil)
	case "rename":
		if len(args) != 2 {
			fmt.Println("rename takes a source and a target field name")
			return
		}
		apply(sandboxSchema.Rename([]string{args[0]}, []string{args[1]}))
	case "copy":
		if len(args) != 2 {
			fmt.Println("copy takes a source and a target field name")
			return
		}
		field, ok := sandboxSchema.FieldByName(args[0])
		if !ok {
			fmt.Printf("unknown field %q\n", args[0])
			return
		}
		copied, err := sluice.NewSchemaOfFields([]sluice.Field{{Name: args[1], Type: field.Type}})
		if err != nil {
			fmt.Println(err)
			return
		}
		apply(sandboxSchema.Append(copied))
	default:
		fmt.Println("Unknown command.")
		fmt.Println(sandboxUsage)
	}
}

func apply(schema sluice.Schema, err error) {
	if err != nil {
		fmt.Println(err)
		return
	}
	sandboxSchema = schema
	fmt.Println(sandboxSchema)
}

func sandboxComplete(d prompt.Document) []prompt.Suggest {
	if !strings.Contains(d.TextBeforeCursor(), " ") {
		return prompt.FilterHasPrefix([]prompt.Suggest{
			{Text: "fields", Description: "Define the working schema"},
			{Text: "project", Description: "Keep only the named fields"},
			{Text: "discard", Description: "Drop the named fields"},
			{Text: "rename", Description: "Rename a field in place"},
			{Text: "copy", Description: "Append a copy of a field"},
			{Text: "schema", Description: "Print the working schema"},
			{Text: "exit", Description: "Leave the sandbox"},
		}, d.GetWordBeforeCursor(), true)
	}

	suggests := make([]prompt.Suggest, 0, sandboxSchema.Len())
	for _, field := range sandboxSchema.Fields() {
		suggests = append(suggests, prompt.Suggest{Text: field.Name, Description: field.Type.String()})
	}
	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}

func init() {
	rootCmd.AddCommand(sandboxCmd)
}
