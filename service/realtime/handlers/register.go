package handlers

import (
	"HelpLink/service/realtime"
)

// RegisterAll installs every inbound-envelope handler on the dispatcher.
func RegisterAll(d *realtime.Dispatcher) {
	d.Register(NewAuthHandler())
	d.Register(NewPingHandler())
	d.Register(NewJoinHandler())
	d.Register(NewSendHandler())
	d.Register(NewRetryHandler())
}
