package dur

import (
	"encoding"
	"encoding/json"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that config files may spell as "1m30s" or as a
// plain number of nanoseconds.
type Duration time.Duration

func (T Duration) Duration() time.Duration {
	return time.Duration(T)
}

func (T Duration) String() string {
	return time.Duration(T).String()
}

func (T *Duration) parse(str string) error {
	if num, err := strconv.ParseInt(str, 10, 64); err == nil {
		*T = Duration(num)
		return nil
	}

	d, err := time.ParseDuration(str)
	if err != nil {
		return err
	}
	*T = Duration(d)
	return nil
}

func (T *Duration) UnmarshalJSON(bytes []byte) error {
	// try as string
	var str string
	if err := json.Unmarshal(bytes, &str); err == nil {
		*(*time.Duration)(T), err = time.ParseDuration(str)
		return err
	}

	// try num
	var num int64
	if err := json.Unmarshal(bytes, &num); err != nil {
		return err
	}
	*T = Duration(num)

	return nil
}

func (T Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(T.String())
}

// UnmarshalText is used by toml and by environment overrides.
func (T *Duration) UnmarshalText(text []byte) error {
	return T.parse(string(text))
}

func (T Duration) MarshalText() ([]byte, error) {
	return []byte(T.String()), nil
}

func (T *Duration) UnmarshalYAML(value *yaml.Node) error {
	return T.parse(value.Value)
}

var _ json.Unmarshaler = (*Duration)(nil)
var _ json.Marshaler = Duration(0)
var _ encoding.TextUnmarshaler = (*Duration)(nil)
var _ encoding.TextMarshaler = Duration(0)
var _ yaml.Unmarshaler = (*Duration)(nil)
