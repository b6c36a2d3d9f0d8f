package config

import (
	"fmt"
	"os"
)

// Template returns the commented default bitsctl config.
func Template() string {
	return bitsctlTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template()), 0o600)
}

const bitsctlTemplate = `# path to a hex transmission, "-" reads stdin
input = "-"
# 1 = version sum, 2 = evaluated value, all = both
part = "all"
# text | json | tree
format = "text"
# wrap | checked
overflow_policy = "wrap"
max_depth = 1024
max_packets = 1048576
# prometheus textfile written after each run, empty disables
metrics_file = ""

[log]
level = "info"
timestamp = true
no_color = false
json = false
`
