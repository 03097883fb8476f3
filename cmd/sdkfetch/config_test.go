package main

import (
	"os"
	"testing"

	"github.com/smartystreets/assertions/should"
	"github.com/smartystreets/gunit"
	"github.com/spf13/pflag"

	"github.com/msfs-tools/sdkfetch/contracts"
)

func TestConfigFixture(t *testing.T) {
	gunit.Run(new(ConfigFixture), t)
}

type ConfigFixture struct {
	*gunit.Fixture
	flags *pflag.FlagSet
}

func (this *ConfigFixture) Setup() {
	this.flags = pflag.NewFlagSet("sdkfetch", pflag.ContinueOnError)
	this.flags.String(keyDataDirectory, "", "")
	this.flags.Int(keyMaxRetry, 0, "")
}

func (this *ConfigFixture) Teardown() {
	_ = os.Unsetenv("SDKFETCH_DATA_DIR")
	_ = os.Unsetenv("SDKFETCH_MAX_RETRY")
	_ = os.Unsetenv("SDKFETCH_MSFS2024_URL")
}

func (this *ConfigFixture) load(args ...string) (Config, error) {
	this.So(this.flags.Parse(args), should.BeNil)
	v, err := newViper(this.flags)
	this.So(err, should.BeNil)
	return loadConfig(v)
}

func (this *ConfigFixture) TestDefaults() {
	config, err := this.load()

	this.So(err, should.BeNil)
	this.So(config.DataDirectory, should.EndWith, applicationName)
	this.So(config.MaxRetry, should.Equal, 0)
	this.So(config.BaseURLs["msfs2020"], should.Equal, contracts.MSFS2020.BaseURL)
}

func (this *ConfigFixture) TestEnvironmentOverridesDefaults() {
	_ = os.Setenv("SDKFETCH_DATA_DIR", "/opt/sdk")
	_ = os.Setenv("SDKFETCH_MAX_RETRY", "3")
	_ = os.Setenv("SDKFETCH_MSFS2024_URL", "http://mirror.local/2024/")

	config, err := this.load()

	this.So(err, should.BeNil)
	this.So(config.DataDirectory, should.Equal, "/opt/sdk")
	this.So(config.MaxRetry, should.Equal, 3)
	line, _ := config.ProductLine("msfs2024")
	this.So(line.BaseURL, should.Equal, "http://mirror.local/2024/")
	this.So(line.Subtree, should.Equal, contracts.MSFS2024.Subtree)
}

func (this *ConfigFixture) TestFlagsOverrideEnvironment() {
	_ = os.Setenv("SDKFETCH_DATA_DIR", "/opt/sdk")

	config, err := this.load("--data-dir", "/home/me/sdk", "--max-retry", "2")

	this.So(err, should.BeNil)
	this.So(config.DataDirectory, should.Equal, "/home/me/sdk")
	this.So(config.MaxRetry, should.Equal, 2)
}

func (this *ConfigFixture) TestNegativeRetryRejected() {
	_, err := this.load("--max-retry=-1")

	this.So(err, should.NotBeNil)
}

func (this *ConfigFixture) TestUnknownProductLine() {
	config, _ := this.load()

	_, err := config.ProductLines([]string{"msfs2020", "fsx"})

	this.So(err, should.NotBeNil)
}
