package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"portfolio/application/ports"
	"portfolio/application/services"
	"portfolio/infrastructure/config"
	"portfolio/infrastructure/di"
	pkgerrors "portfolio/pkg/errors"
	"portfolio/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// addArgs are the positional arguments of add
type addArgs struct {
	Kind string          `json:"kind" validate:"required"`
	Data json.RawMessage `json:"data" validate:"json_present"`
}

// updateArgs are the positional arguments of update
type updateArgs struct {
	Kind string          `json:"kind" validate:"required"`
	ID   string          `json:"id" validate:"required"`
	Data json.RawMessage `json:"data" validate:"json_present"`
}

// cli carries state shared by every subcommand
type cli struct {
	out io.Writer
	in  io.Reader

	contentFile string
	verbose     bool

	store   ports.DocumentStore
	service *services.ContentService
}

func newRootCmd(out io.Writer, in io.Reader) *cobra.Command {
	c := &cli{out: out, in: in}

	root := &cobra.Command{
		Use:   "contentctl",
		Short: "Inspect and edit portfolio content",
		Long: `contentctl reads and writes the portfolio content document using the
configured store backend. Configuration comes from the same environment
variables, .env file and CONFIG_FILE the server reads.

JSON arguments may be given inline or as "-" to read standard input.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.open,
	}
	root.SetOut(out)
	root.SetIn(in)

	root.PersistentFlags().StringVarP(&c.contentFile, "file", "f", "", "content file to use; forces the file backend")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log store activity to stderr")

	root.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the content document if it does not exist",
			Args:  cobra.NoArgs,
			RunE:  c.runInit,
		},
		&cobra.Command{
			Use:   "list [kind]",
			Short: "Print all items, or the value of one kind",
			Args:  cobra.MaximumNArgs(1),
			RunE:  c.runList,
		},
		&cobra.Command{
			Use:   "add <kind> <json>",
			Short: "Add an item, or set a singleton kind",
			Args:  cobra.ExactArgs(2),
			RunE:  c.runAdd,
		},
		&cobra.Command{
			Use:   "update <kind> <id> <json>",
			Short: "Replace an item in place",
			Args:  cobra.ExactArgs(3),
			RunE:  c.runUpdate,
		},
		&cobra.Command{
			Use:   "remove <kind> [id]",
			Short: "Remove an item, or reset a singleton kind",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  c.runRemove,
		},
	)
	return root
}

// open builds the repository once flags are parsed
func (c *cli) open(cmd *cobra.Command, _ []string) error {
	if c.service != nil {
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if c.contentFile != "" {
		cfg.StoreBackend = config.BackendFile
		cfg.ContentFile = c.contentFile
	}

	logger := zap.NewNop()
	if c.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}

	var client *dynamodb.Client
	if cfg.StoreBackend == config.BackendDynamoDB {
		awsCfg, err := di.ProvideAWSConfig(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		client = di.ProvideDynamoDBClient(awsCfg)
	}

	store, err := di.ProvideDocumentStore(cfg, client, nil, nil, logger)
	if err != nil {
		return err
	}
	c.store = store
	c.service = services.NewContentService(store, logger)

	if cmd.Name() == "init" {
		return nil
	}
	return c.service.Initialize(cmd.Context())
}

func (c *cli) runInit(cmd *cobra.Command, _ []string) error {
	created, err := c.store.Ensure(cmd.Context())
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintln(c.out, "created empty content document")
	} else {
		fmt.Fprintln(c.out, "content document already exists")
	}
	return nil
}

func (c *cli) runList(cmd *cobra.Command, args []string) error {
	var value interface{}
	var err error
	if len(args) == 0 {
		value, err = c.service.ListAll(cmd.Context())
	} else {
		value, err = c.service.ListByKind(cmd.Context(), args[0])
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func (c *cli) runAdd(cmd *cobra.Command, args []string) error {
	data, err := c.readJSON(args[1])
	if err != nil {
		return err
	}
	in := addArgs{Kind: args[0], Data: data}
	if err := validateArgs(in); err != nil {
		return err
	}
	id, err := c.service.Create(cmd.Context(), in.Kind, in.Data)
	if err != nil {
		return err
	}
	if id != "" {
		fmt.Fprintln(c.out, id)
	}
	return nil
}

func (c *cli) runUpdate(cmd *cobra.Command, args []string) error {
	data, err := c.readJSON(args[2])
	if err != nil {
		return err
	}
	in := updateArgs{Kind: args[0], ID: args[1], Data: data}
	if err := validateArgs(in); err != nil {
		return err
	}
	return c.service.Update(cmd.Context(), in.Kind, in.ID, in.Data)
}

func (c *cli) runRemove(cmd *cobra.Command, args []string) error {
	id := ""
	if len(args) == 2 {
		id = args[1]
	}
	return c.service.Delete(cmd.Context(), args[0], id)
}

// readJSON returns arg, or standard input when arg is "-"
func (c *cli) readJSON(arg string) (json.RawMessage, error) {
	raw := []byte(arg)
	if arg == "-" {
		var err error
		if raw, err = io.ReadAll(c.in); err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
	}
	trimmed := strings.TrimSpace(string(raw))
	if !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("argument is not valid JSON: %s", trimmed)
	}
	return json.RawMessage(trimmed), nil
}

func validateArgs(args interface{}) error {
	if err := utils.ValidateStruct(args); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}
