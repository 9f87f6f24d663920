package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/KaramelBytes/dqcheck/internal/config"
	"github.com/KaramelBytes/dqcheck/internal/dataset"
	"github.com/KaramelBytes/dqcheck/internal/schedule"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set dqcheck configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		shown := *cfg
		shown.S3AccessKeyID = mask(shown.S3AccessKeyID)
		shown.S3SecretAccessKey = mask(shown.S3SecretAccessKey)
		b, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		set, ok := configSetters[key]
		if !ok {
			return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys(), ", "))
		}
		if err := set(cfg, val); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable configuration keys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		keys := cfgpkg.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
	},
}

type setter func(c *cfgpkg.Global, val string) error

func setString(dst func(*cfgpkg.Global) *string) setter {
	return func(c *cfgpkg.Global, val string) error {
		*dst(c) = val
		return nil
	}
}

func setInt(dst func(*cfgpkg.Global) *int, floor int) setter {
	return func(c *cfgpkg.Global, val string) error {
		i, err := cast.ToIntE(val)
		if err != nil {
			return err
		}
		if i < floor {
			return fmt.Errorf("must be >= %d", floor)
		}
		*dst(c) = i
		return nil
	}
}

func setFloat(dst func(*cfgpkg.Global) *float64) setter {
	return func(c *cfgpkg.Global, val string) error {
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return err
		}
		if f < 0 {
			return fmt.Errorf("must be >= 0")
		}
		*dst(c) = f
		return nil
	}
}

func setList(dst func(*cfgpkg.Global) *[]string) setter {
	return func(c *cfgpkg.Global, val string) error {
		var out []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst(c) = out
		return nil
	}
}

func setOneOf(dst func(*cfgpkg.Global) *string, allowed ...string) setter {
	return func(c *cfgpkg.Global, val string) error {
		v := strings.ToLower(strings.TrimSpace(val))
		for _, a := range allowed {
			if v == a {
				*dst(c) = v
				return nil
			}
		}
		return fmt.Errorf("%q (use %s)", val, strings.Join(allowed, "|"))
	}
}

var configSetters = map[string]setter{
	"delimiter": func(c *cfgpkg.Global, val string) error {
		if _, err := dataset.ParseDelimiter(val); err != nil {
			return err
		}
		c.Delimiter = val
		return nil
	},
	"encoding":        setString(func(c *cfgpkg.Global) *string { return &c.Encoding }),
	"id_column":       setString(func(c *cfgpkg.Global) *string { return &c.IDColumn }),
	"min_rows":        setInt(func(c *cfgpkg.Global) *int { return &c.MinRows }, 0),
	"max_rows":        setInt(func(c *cfgpkg.Global) *int { return &c.MaxRows }, 0),
	"na_values":       setList(func(c *cfgpkg.Global) *[]string { return &c.NAValues }),
	"chart_width_in":  setFloat(func(c *cfgpkg.Global) *float64 { return &c.ChartWidthIn }),
	"chart_height_in": setFloat(func(c *cfgpkg.Global) *float64 { return &c.ChartHeightIn }),

	"http_addr":            setString(func(c *cfgpkg.Global) *string { return &c.HTTPAddr }),
	"max_upload_mb":        setInt(func(c *cfgpkg.Global) *int { return &c.MaxUploadMB }, 1),
	"rate_limit_rps":       setFloat(func(c *cfgpkg.Global) *float64 { return &c.RateLimitRPS }),
	"rate_limit_burst":     setInt(func(c *cfgpkg.Global) *int { return &c.RateLimitBurst }, 0),
	"shutdown_timeout_sec": setInt(func(c *cfgpkg.Global) *int { return &c.ShutdownTimeoutSec }, 0),

	"log_level":  setOneOf(func(c *cfgpkg.Global) *string { return &c.LogLevel }, "debug", "info", "warn", "error"),
	"log_format": setOneOf(func(c *cfgpkg.Global) *string { return &c.LogFormat }, "text", "json"),

	"publisher":      setOneOf(func(c *cfgpkg.Global) *string { return &c.Publisher }, "none", "kafka", "mqtt"),
	"kafka_brokers":  setList(func(c *cfgpkg.Global) *[]string { return &c.KafkaBrokers }),
	"kafka_topic":    setString(func(c *cfgpkg.Global) *string { return &c.KafkaTopic }),
	"mqtt_broker":    setString(func(c *cfgpkg.Global) *string { return &c.MQTTBroker }),
	"mqtt_topic":     setString(func(c *cfgpkg.Global) *string { return &c.MQTTTopic }),
	"mqtt_client_id": setString(func(c *cfgpkg.Global) *string { return &c.MQTTClientID }),
	"mqtt_qos": func(c *cfgpkg.Global, val string) error {
		q, err := cast.ToIntE(val)
		if err != nil {
			return err
		}
		if q < 0 || q > 2 {
			return fmt.Errorf("qos must be 0, 1 or 2")
		}
		c.MQTTQoS = q
		return nil
	},

	"s3_endpoint":          setString(func(c *cfgpkg.Global) *string { return &c.S3Endpoint }),
	"s3_region":            setString(func(c *cfgpkg.Global) *string { return &c.S3Region }),
	"s3_access_key_id":     setString(func(c *cfgpkg.Global) *string { return &c.S3AccessKeyID }),
	"s3_secret_access_key": setString(func(c *cfgpkg.Global) *string { return &c.S3SecretAccessKey }),
	"s3_use_path_style": func(c *cfgpkg.Global, val string) error {
		b, err := cast.ToBoolE(val)
		if err != nil {
			return err
		}
		c.S3UsePathStyle = b
		return nil
	},

	"suites_dir": setString(func(c *cfgpkg.Global) *string { return &c.SuitesDir }),
	"watch_schedule": func(c *cfgpkg.Global, val string) error {
		if err := schedule.Validate(val); err != nil {
			return err
		}
		c.WatchSchedule = val
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd, configKeysCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
