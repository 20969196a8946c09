package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/mlx90614/components/board/genericlinux/buses"
	"go.viam.com/mlx90614/components/sensor"
	"go.viam.com/mlx90614/components/sensor/fake"
	"go.viam.com/mlx90614/components/sensor/mlx90614"
	"go.viam.com/mlx90614/logging"
)

type sensorAction func(c *cli.Context, s sensor.Sensor) error

// openSensor opens the bus and the sensor on it. The returned func closes the bus. Tests swap
// it out for an injected sensor.
var openSensor = func(
	ctx context.Context,
	conf *mlx90614.Config,
	logger logging.Logger,
) (sensor.Sensor, func() error, error) {
	bus, err := buses.NewI2cBus(conf.I2CBus, logger.Sublogger("i2c"))
	if err != nil {
		return nil, nil, err
	}
	s, err := mlx90614.NewSensor(ctx, bus, conf, logger)
	if err != nil {
		return nil, nil, multierr.Combine(err, bus.Close())
	}
	return s, bus.Close, nil
}

func withSensor(logger logging.Logger, action sensorAction) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		conf, err := loadConfig(c)
		if err != nil {
			return err
		}
		var (
			s        sensor.Sensor
			closeBus = func() error { return nil }
		)
		if c.Bool(flagFake) {
			logger.Infow("using a fake sensor", "bus", conf.I2CBus, "address", conf.Address())
			s = fake.NewSensor()
		} else {
			s, closeBus, err = openSensor(c.Context, conf, logger)
			if err != nil {
				return err
			}
		}
		defer func() {
			err = multierr.Combine(err, s.Close(c.Context), closeBus())
		}()
		return action(c, s)
	}
}

// loadConfig builds the sensor config from --config when given, otherwise from --bus and
// --address.
func loadConfig(c *cli.Context) (*mlx90614.Config, error) {
	path := c.Path(flagConfig)
	if path == "" {
		return mlx90614.ConfigFromAttributes(map[string]interface{}{
			"i2c_bus":  c.String(flagBus),
			"i2c_addr": c.String(flagAddress),
		})
	}

	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	var attributes map[string]interface{}
	if err := json.Unmarshal(data, &attributes); err != nil {
		return nil, errors.Wrapf(err, "config %q is not a JSON object", path)
	}
	return mlx90614.ConfigFromAttributes(attributes)
}

func readAction(c *cli.Context, s sensor.Sensor) error {
	readings, err := s.Readings(c.Context, nil)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(readings))
	for k := range readings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.App.Writer, "%s: %.2f\n", k, readings[k])
	}
	return nil
}

func emissivityGetAction(c *cli.Context, s sensor.Sensor) error {
	resp, err := s.DoCommand(c.Context, map[string]interface{}{mlx90614.EmissivityKey: true})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "emissivity: %.4f\n", resp[mlx90614.EmissivityKey])
	return nil
}

func emissivitySetAction(c *cli.Context, s sensor.Sensor) error {
	if c.Args().Len() != 1 {
		return errors.New("emissivity set takes exactly one value between 0.0 and 1.0")
	}
	resp, err := s.DoCommand(c.Context, map[string]interface{}{mlx90614.ConfigureEmissivityKey: c.Args().First()})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "emissivity: %.4f\n", resp[mlx90614.EmissivityKey])
	return nil
}

func flagsAction(c *cli.Context, s sensor.Sensor) error {
	resp, err := s.DoCommand(c.Context, map[string]interface{}{mlx90614.FlagsKey: true})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "flags: 0x%04X ready=%v eeprom_busy=%v eeprom_dead=%v\n",
		resp[mlx90614.FlagsKey], resp["ready"], resp["eeprom_busy"], resp["eeprom_dead"])
	return nil
}

func idAction(c *cli.Context, s sensor.Sensor) error {
	resp, err := s.DoCommand(c.Context, map[string]interface{}{mlx90614.IDKey: true})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "id: %s\n", resp[mlx90614.IDKey])
	return nil
}

func registersAction(c *cli.Context, s sensor.Sensor) error {
	resp, err := s.DoCommand(c.Context, map[string]interface{}{mlx90614.RegistersKey: true})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, registerTable(resp))
	return nil
}

// registerTable renders the registers in command order.
func registerTable(registers map[string]interface{}) string {
	commands := make(map[string]mlx90614.Command, 0x100)
	for c := 0; c <= 0xFF; c++ {
		commands[mlx90614.Command(c).String()] = mlx90614.Command(c)
	}
	names := make([]string, 0, len(registers))
	for name := range registers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return commands[names[i]] < commands[names[j]]
	})

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Command", "Register", "Value"})
	for _, name := range names {
		t.AppendRow(table.Row{
			fmt.Sprintf("0x%02X", byte(commands[name])),
			name,
			fmt.Sprintf("0x%04X", registers[name]),
		})
	}
	return t.Render()
}

func configSchemaAction(c *cli.Context) error {
	data, err := json.MarshalIndent(jsonschema.Reflect(&mlx90614.Config{}), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}

func sleepAction(c *cli.Context, s sensor.Sensor) error {
	if !c.Bool(flagYes) {
		return errors.New("the sensor only wakes up after a power cycle; pass --yes to put it to sleep")
	}
	if _, err := s.DoCommand(c.Context, map[string]interface{}{mlx90614.SleepKey: true}); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "sensor is asleep")
	return nil
}
