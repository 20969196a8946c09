// Package main is a command line tool for an MLX90614 on a Linux I2C bus.
package main

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"go.viam.com/mlx90614/logging"
)

const (
	flagBus     = "bus"
	flagAddress = "address"
	flagConfig  = "config"
	flagDebug   = "debug"
	flagFake    = "fake"
	flagLogFile = "log-file"
	flagYes     = "yes"
)

func main() {
	logger := logging.NewLogger("mlx90614")
	app := newApp(logger)
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

// logFileMaxSizeMB is the size at which --log-file is rotated.
const logFileMaxSizeMB = 10

func newApp(logger logging.Logger) *cli.App {
	var logFile io.Closer
	return &cli.App{
		Name:  "mlx90614",
		Usage: "read and configure an MLX90614 infrared thermometer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagBus,
				Value: "1",
				Usage: "I2C bus name or number",
			},
			&cli.StringFlag{
				Name:  flagAddress,
				Value: "0x5A",
				Usage: "7-bit I2C address of the sensor",
			},
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "JSON file with the sensor attributes; overrides --bus and --address",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "log every bus transaction",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write JSON logs to this file, rotated at 10MB",
			},
			&cli.BoolFlag{
				Name:  flagFake,
				Usage: "answer from an in-memory sensor instead of the bus",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
			}
			if path := c.Path(flagLogFile); path != "" {
				var appender zapcore.Core
				appender, logFile = logging.NewFileAppender(path, logFileMaxSizeMB)
				logger.AddAppender(appender)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logFile == nil {
				return nil
			}
			return logFile.Close()
		},
		Commands: []*cli.Command{
			{
				Name:   "read",
				Usage:  "print the ambient and object temperatures",
				Action: withSensor(logger, readAction),
			},
			{
				Name:  "emissivity",
				Usage: "show or change the emissivity stored in EEPROM",
				Subcommands: []*cli.Command{
					{
						Name:   "get",
						Usage:  "print the stored emissivity",
						Action: withSensor(logger, emissivityGetAction),
					},
					{
						Name:      "set",
						Usage:     "store a new emissivity, only writing when it differs",
						ArgsUsage: "<0.0-1.0>",
						Action:    withSensor(logger, emissivitySetAction),
					},
				},
			},
			{
				Name:   "flags",
				Usage:  "print the status flags",
				Action: withSensor(logger, flagsAction),
			},
			{
				Name:   "id",
				Usage:  "print the factory ID",
				Action: withSensor(logger, idAction),
			},
			{
				Name:   "registers",
				Usage:  "print every readable register",
				Action: withSensor(logger, registersAction),
			},
			{
				Name:   "config-schema",
				Usage:  "print the JSON schema of the --config file",
				Action: configSchemaAction,
			},
			{
				Name:  "sleep",
				Usage: "put the sensor to sleep; it will not answer again until power cycled",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: flagYes, Usage: "confirm the sensor should go to sleep"},
				},
				Action: withSensor(logger, sleepAction),
			},
		},
	}
}
