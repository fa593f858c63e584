package grbl

import (
	"strconv"
	"strings"
)

// GRBL 1.1 error codes, as reported in "error:N" replies.
var errorCodes = map[int]string{
	1:  "expected command letter",
	2:  "bad number format",
	3:  "invalid $ statement",
	4:  "negative value",
	5:  "setting disabled",
	6:  "step pulse below 3 usec",
	7:  "EEPROM read fail",
	8:  "not idle",
	9:  "G-code locked out during alarm or jog state",
	10: "homing not enabled",
	11: "line overflow",
	12: "step rate above 30kHz",
	13: "safety door detected as opened",
	14: "build info or startup line exceeded EEPROM line length",
	15: "jog target exceeds machine travel",
	16: "invalid jog command",
	17: "laser mode requires PWM output",
	20: "unsupported or invalid g-code command",
	21: "more than one g-code command from same modal group",
	22: "feed rate not yet set or undefined",
	23: "g-code command requires an integer value",
	24: "two g-code commands both require XYZ axis words",
	25: "repeated g-code word",
	26: "no axis words found in command block",
	27: "line number value is invalid",
	28: "missing a required value word",
	29: "G59.x work coordinate systems not supported",
	30: "G53 only allowed with G0 and G1",
	31: "axis words found in block when no command uses them",
	32: "G2/G3 arcs require at least one in-plane axis word",
	33: "motion command target is invalid",
	34: "arc radius value is invalid",
	35: "G2/G3 arcs require at least one in-plane offset word",
	36: "unused value words found in block",
	37: "G43.1 dynamic tool length offset not assigned to configured axis",
	38: "tool number greater than max supported value",
}

// GRBL 1.1 alarm codes, as reported in "ALARM:N" lines.
var alarmCodes = map[int]string{
	1: "hard limit triggered",
	2: "soft limit: motion target exceeds machine travel",
	3: "reset while in motion",
	4: "probe fail: not in expected initial state",
	5: "probe fail: did not contact the workpiece",
	6: "homing fail: reset during active homing cycle",
	7: "homing fail: safety door opened during homing",
	8: "homing fail: pull off failed to clear limit switch",
	9: "homing fail: could not find limit switch",
}

// DescribeReply returns a human readable explanation of an error or alarm
// reply, or "" when the reply is not one.
func DescribeReply(reply string) string {
	if code, ok := replyCode(reply, "error:"); ok {
		if desc, ok := errorCodes[code]; ok {
			return desc
		}
		return "unknown error code " + strconv.Itoa(code)
	}
	if code, ok := replyCode(reply, "ALARM:"); ok {
		if desc, ok := alarmCodes[code]; ok {
			return "alarm: " + desc
		}
		return "unknown alarm code " + strconv.Itoa(code)
	}
	return ""
}

func replyCode(reply, prefix string) (int, bool) {
	if !strings.HasPrefix(reply, prefix) {
		return 0, false
	}
	code, err := strconv.Atoi(strings.TrimPrefix(reply, prefix))
	if err != nil {
		return 0, false
	}
	return code, true
}
