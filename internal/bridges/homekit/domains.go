package homekit

// SupportedDomains lists the entity domains the hub's HomeKit bridge
// integration can represent as accessories. Entities outside these
// domains are excluded from the reconciliation universe rather than
// treated as errors.
var SupportedDomains = []string{
	"alarm_control_panel",
	"binary_sensor",
	"button",
	"camera",
	"climate",
	"cover",
	"fan",
	"humidifier",
	"input_boolean",
	"lawn_mower",
	"light",
	"lock",
	"scene",
	"script",
	"sensor",
	"switch",
	"valve",
	"water_heater",
}

var supportedDomainSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SupportedDomains))
	for _, d := range SupportedDomains {
		set[d] = struct{}{}
	}
	return set
}()

// DomainSupported reports whether a HomeKit bridge can expose entities
// of the given domain.
func DomainSupported(domain string) bool {
	_, ok := supportedDomainSet[domain]
	return ok
}
