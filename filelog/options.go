package filelog

import "github.com/0xRadioAc7iv/go-filelog/internal/config"

type Option func(*config.Client)

func WithHost(host string) Option {
	return func(c *config.Client) {
		c.Host = host
	}
}

func WithPort(port int) Option {
	return func(c *config.Client) {
		c.Port = port
	}
}
