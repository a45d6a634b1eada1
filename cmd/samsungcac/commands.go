package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/zberg/go-samsungcac/internal/config"
	"github.com/zberg/go-samsungcac/internal/logging"
	"github.com/zberg/go-samsungcac/pkg/samsungcac"
)

// TokenEnvVar supplies the authentication token when --token is not set.
const TokenEnvVar = "SAMSUNGCAC_TOKEN"

var (
	configPath string
	host       string
	port       int
	logLevel   string
	timeout    time.Duration
	token      string

	cfg *config.Config
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/samsungcac/config.yaml)")
	flags.StringVar(&host, "host", "", "Controller host name or IP address")
	flags.IntVar(&port, "port", samsungcac.DefaultPort, "Controller TLS port")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "Connect and per-request timeout (0 disables)")
	flags.StringVar(&token, "token", "", "Authentication token (or set "+TokenEnvVar+")")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAliasCmd)
}

// setup loads the config file and fills every flag the user did not set
// from it, then initializes logging.
func setup(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		configPath = p
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("host") && cfg.Host != "" {
		host = cfg.Host
	}
	if !flags.Changed("port") && cfg.Port != 0 {
		port = cfg.Port
	}
	if !flags.Changed("log-level") && cfg.LogLevel != "" {
		logLevel = cfg.LogLevel
	}
	if !flags.Changed("timeout") && cfg.Timeout != 0 {
		timeout = cfg.Timeout
	}
	if token == "" {
		token = os.Getenv(TokenEnvVar)
	}

	return logging.Initialize(logLevel)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func getClient(ctx context.Context) (*samsungcac.Client, error) {
	if host == "" {
		return nil, errors.New("controller host required: use --host or set host in the config file")
	}

	opts := []samsungcac.ClientOption{
		samsungcac.WithPort(port),
		samsungcac.WithLogger(logging.GetLogger()),
	}
	if timeout > 0 {
		opts = append(opts,
			samsungcac.WithConnectTimeout(timeout),
			samsungcac.WithRequestTimeout(timeout),
		)
	}

	client, err := samsungcac.NewClient(host, opts...)
	if err != nil {
		return nil, err
	}

	connectCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := client.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", host, err)
	}
	return client, nil
}

// getSession connects, logs in and fetches the device list.
func getSession(ctx context.Context, list listOptions) (*samsungcac.Client, error) {
	if token == "" {
		return nil, fmt.Errorf("token required: run 'samsungcac token' and pass --token or set %s", TokenEnvVar)
	}

	client, err := getClient(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := client.Login(ctx, token); err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("login: %w", err)
	}
	if _, err := client.DeviceList(ctx, list.start, list.count, list.group); err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return client, nil
}

type listOptions struct {
	start int
	count int
	group string
}

func addListFlags(cmd *cobra.Command, o *listOptions) {
	cmd.Flags().IntVar(&o.start, "start", samsungcac.DefaultListStart, "First device index to list")
	cmd.Flags().IntVar(&o.count, "count", samsungcac.DefaultListCount, "Number of devices to list")
	cmd.Flags().StringVar(&o.group, "group", samsungcac.DefaultListGroup, "Device group")
}

var tokenWait time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Request a new authentication token",
	Long: `Request a new authentication token. Press the power button on the
controller when prompted; the token is printed once the controller answers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		client, err := getClient(ctx)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		fmt.Fprintln(cmd.ErrOrStderr(), "Press the power button on the controller...")

		waitCtx, cancel := context.WithTimeout(ctx, tokenWait)
		defer cancel()
		tok, err := client.GetToken(waitCtx)
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var devicesList listOptions

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices known to the controller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		client, err := getSession(ctx, devicesList)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		devices := client.Devices()
		if len(devices) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No devices found.")
			return nil
		}
		for _, dev := range devices {
			printDevice(cmd.OutOrStdout(), dev, false)
		}
		return nil
	},
}

var stateList listOptions

var stateCmd = &cobra.Command{
	Use:   "state <duid|alias>",
	Short: "Show the state of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		client, err := getSession(ctx, stateList)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		dev, err := client.DeviceState(ctx, cfg.ResolveDevice(args[0]))
		if err != nil {
			return err
		}
		printDevice(cmd.OutOrStdout(), dev, true)
		return nil
	},
}

var controlCmd = &cobra.Command{
	Use:   "control <duid|alias>",
	Short: "Change power, mode, temperature or fan settings of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := controlOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signalContext(cmd)
		defer stop()

		if token == "" {
			return fmt.Errorf("token required: run 'samsungcac token' and pass --token or set %s", TokenEnvVar)
		}
		client, err := getClient(ctx)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		if _, err := client.Login(ctx, token); err != nil {
			return fmt.Errorf("login: %w", err)
		}

		resp, err := client.ControlDevice(ctx, cfg.ResolveDevice(args[0]), opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Command sent (status %s).\n", resp.Status)
		return nil
	},
}

func controlOptionsFromFlags(cmd *cobra.Command) (samsungcac.ControlOptions, error) {
	var opts samsungcac.ControlOptions
	flags := cmd.Flags()

	if flags.Changed("power") {
		v, _ := flags.GetString("power")
		p, err := parseChoice("power", v, samsungcac.PowerOn, samsungcac.PowerOff)
		if err != nil {
			return opts, err
		}
		opts.Power = &p
	}
	if flags.Changed("mode") {
		v, _ := flags.GetString("mode")
		m, err := parseChoice("mode", v,
			samsungcac.OperationAuto, samsungcac.OperationCool, samsungcac.OperationHeat, samsungcac.OperationDry)
		if err != nil {
			return opts, err
		}
		opts.Operation = &m
	}
	if flags.Changed("temp") {
		t, _ := flags.GetFloat64("temp")
		opts.TargetTemperature = &t
	}
	if flags.Changed("fan-speed") {
		v, _ := flags.GetString("fan-speed")
		s, err := parseChoice("fan-speed", v,
			samsungcac.FanSpeedAuto, samsungcac.FanSpeedLow, samsungcac.FanSpeedMid,
			samsungcac.FanSpeedHigh, samsungcac.FanSpeedTurbo)
		if err != nil {
			return opts, err
		}
		opts.FanSpeed = &s
	}
	if flags.Changed("fan") {
		v, _ := flags.GetString("fan")
		f, err := parseChoice("fan", v, samsungcac.FanOn, samsungcac.FanOff)
		if err != nil {
			return opts, err
		}
		opts.Fan = &f
	}

	if len(opts.Attrs()) == 0 {
		return opts, errors.New("nothing to change: set at least one of --power, --mode, --temp, --fan-speed, --fan")
	}
	return opts, nil
}

// parseChoice matches value case-insensitively against choices.
func parseChoice[T ~string](flag, value string, choices ...T) (T, error) {
	names := make([]string, 0, len(choices))
	for _, c := range choices {
		if strings.EqualFold(string(c), value) {
			return c, nil
		}
		names = append(names, strings.ToLower(string(c)))
	}
	var zero T
	return zero, fmt.Errorf("invalid --%s %q: must be one of %s", flag, value, strings.Join(names, ", "))
}

var watchList listOptions

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print device updates until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		client, err := getSession(ctx, watchList)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		out := cmd.OutOrStdout()
		var mu sync.Mutex
		client.DeviceUpdated().Subscribe(func(u samsungcac.DeviceUpdate) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s ", time.Now().Format(time.TimeOnly))
			printDevice(out, u.Device, true)
		})

		closed := make(chan struct{})
		var once sync.Once
		client.Disconnected().Subscribe(func(*samsungcac.Client) {
			once.Do(func() { close(closed) })
		})

		for _, dev := range client.Devices() {
			if _, err := client.DeviceState(ctx, dev.ID); err != nil {
				logging.GetLogger().Warn("initial state query failed", zap.String("duid", dev.ID), zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return errors.New("connection closed by controller")
		}
	},
}

func printDevice(w io.Writer, dev *samsungcac.Device, withState bool) {
	name := dev.ID
	if alias, ok := cfg.AliasFor(dev.ID); ok {
		name = fmt.Sprintf("%s (%s)", dev.ID, alias)
	}
	if !withState {
		fmt.Fprintf(w, "%s: group=%s model=%s\n", name, dev.Group, dev.Model)
		return
	}

	st := dev.State()
	fmt.Fprintf(w, "%s: power=%s mode=%s temp=%s set=%s fan=%s speed=%s\n",
		name,
		orUnknown(st.Power),
		orUnknown(st.Operation),
		numberOrUnknown(st.CurrentTemperature),
		numberOrUnknown(st.TargetTemperature),
		orUnknown(st.Fan),
		orUnknown(st.FanSpeed),
	)
}

func orUnknown[T ~string](v *T) string {
	if v == nil {
		return "?"
	}
	return string(*v)
}

func numberOrUnknown(v *float64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file from the current flags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}

		cfg.Host = host
		cfg.Port = port
		cfg.LogLevel = logLevel
		cfg.Timeout = timeout
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", configPath)
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	},
}

var configAliasCmd = &cobra.Command{
	Use:   "alias <name> [duid]",
	Short: "Name a device; omit the DUID to remove the alias",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		duid := ""
		if len(args) == 2 {
			duid = args[1]
		}
		if err := cfg.SetAlias(args[0], duid); err != nil {
			return err
		}
		return cfg.Save(configPath)
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenWait, "wait", 2*time.Minute, "How long to wait for the power button")

	addListFlags(devicesCmd, &devicesList)
	addListFlags(stateCmd, &stateList)
	addListFlags(watchCmd, &watchList)

	controlCmd.Flags().String("power", "", "Power state (on, off)")
	controlCmd.Flags().String("mode", "", "Mode (auto, cool, heat, dry)")
	controlCmd.Flags().Float64("temp", 0, "Target temperature")
	controlCmd.Flags().String("fan-speed", "", "Fan speed (auto, low, mid, high, turbo)")
	controlCmd.Flags().String("fan", "", "Fan (on, off)")

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
}
