package betterimpact

import (
	"shiftbooker/lib/telemetry"
)

var tracer = telemetry.Tracer("shiftbooker.lib.scrapers.betterimpact")
