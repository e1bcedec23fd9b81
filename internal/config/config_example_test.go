package config_test

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/levinOo/truenas-exporter/internal/config"
)

// Example_defaultConfig демонстрирует загрузку конфигурации со значениями по умолчанию.
func Example_defaultConfig() {
	os.Setenv("TRUENAS_USER", "root")
	os.Setenv("TRUENAS_PASS", "secret")
	defer os.Unsetenv("TRUENAS_USER")
	defer os.Unsetenv("TRUENAS_PASS")

	fs := pflag.NewFlagSet("example", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse([]string{"--target", "nas.local"})

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("Target: %s\n", cfg.Target)
	fmt.Printf("Listen: %s\n", cfg.Addr())
	fmt.Printf("SMART cache: %s\n", cfg.SmartCacheTTL())
	fmt.Printf("Workers: %d\n", cfg.Workers)
	// Output:
	// Target: nas.local
	// Listen: :9912
	// SMART cache: 12h0m0s
	// Workers: 4
}

// Example_environmentVariables демонстрирует приоритет переменных окружения над флагами.
func Example_environmentVariables() {
	os.Setenv("TRUENAS_USER", "root")
	os.Setenv("TRUENAS_PASS", "secret")
	os.Setenv("TRUENAS_EXPORTER_PORT", "9100")
	os.Setenv("TRUENAS_SKIP_SNMP", "true")
	defer func() {
		for _, k := range []string{"TRUENAS_USER", "TRUENAS_PASS", "TRUENAS_EXPORTER_PORT", "TRUENAS_SKIP_SNMP"} {
			os.Unsetenv(k)
		}
	}()

	fs := pflag.NewFlagSet("example", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse([]string{"--target", "10.0.0.5", "--port", "9000"})

	cfg, _ := config.Load(fs)

	fmt.Printf("Port: %d\n", cfg.Port)
	fmt.Printf("Skip SNMP: %t\n", cfg.SkipSNMP)
	// Output:
	// Port: 9100
	// Skip SNMP: true
}

// Example_missingCredentials демонстрирует отказ запуска без учётных данных.
func Example_missingCredentials() {
	os.Unsetenv("TRUENAS_USER")
	os.Unsetenv("TRUENAS_PASS")

	fs := pflag.NewFlagSet("example", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse([]string{"--target", "nas.local"})

	_, err := config.Load(fs)
	fmt.Println(err)
	// Output:
	// TRUENAS_USER and TRUENAS_PASS must be set
}
