package cybersource

import (
	"strings"

	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

// avsResult describes an AVS code: message plus whether street and postal code matched.
type avsResult struct {
	message     string
	streetMatch string
	postalMatch string
}

var avsResults = map[string]avsResult{
	"A": {"Street address matches, but postal code does not match.", "Y", "N"},
	"B": {"Street address matches, but postal code not verified.", "Y", ""},
	"C": {"Street address and postal code do not match.", "N", "N"},
	"D": {"Street address and postal code match.", "Y", "Y"},
	"E": {"AVS data is invalid or AVS is not allowed for this card type.", "", ""},
	"F": {"Card member's name does not match, but billing postal code matches.", "", "Y"},
	"G": {"Non-U.S. issuing bank does not support AVS.", "", ""},
	"H": {"Card member's name does not match. Street address and postal code match.", "Y", "Y"},
	"I": {"Address not verified.", "", ""},
	"J": {"Card member's name, billing address, and postal code match. Shipping information verified and chargeback protection guaranteed through the Fraud Protection Program.", "Y", "Y"},
	"K": {"Card member's name matches but billing address and billing postal code do not match.", "N", "N"},
	"L": {"Card member's name and billing postal code match, but billing address does not match.", "N", "Y"},
	"M": {"Street address and postal code match.", "Y", "Y"},
	"N": {"Street address and postal code do not match.", "N", "N"},
	"O": {"Card member's name and billing address match, but billing postal code does not match.", "Y", "N"},
	"P": {"Postal code matches, but street address not verified.", "", "Y"},
	"Q": {"Card member's name, billing address, and postal code match. Shipping information verified but chargeback protection not guaranteed.", "Y", "Y"},
	"R": {"System unavailable.", "", ""},
	"S": {"U.S.-issuing bank does not support AVS.", "", ""},
	"T": {"Card member's name does not match, but street address matches.", "Y", ""},
	"U": {"Address information unavailable.", "", ""},
	"V": {"Card member's name, billing address, and billing postal code match.", "Y", "Y"},
	"W": {"Street address does not match, but 9-digit postal code matches.", "N", "Y"},
	"X": {"Street address and 9-digit postal code match.", "Y", "Y"},
	"Y": {"Street address and 5-digit postal code match.", "Y", "Y"},
	"Z": {"Street address does not match, but 5-digit postal code matches.", "N", "Y"},
}

var cvvResults = map[string]string{
	"D": "CVV check flagged transaction as suspicious",
	"I": "CVV failed data validation check",
	"M": "CVV matches",
	"N": "CVV does not match",
	"P": "CVV not processed",
	"S": "CVV should have been present",
	"U": "CVV request unable to be processed by issuer",
	"X": "CVV check not supported for card",
}

// verificationFor maps raw AVS and CVV codes to their descriptions. Unknown
// codes keep the code and leave the message empty.
func verificationFor(avsCode, cvCode string) domain.VerificationResult {
	var v domain.VerificationResult

	if code := strings.ToUpper(strings.TrimSpace(avsCode)); code != "" {
		v.AVSResultCode = domain.StringPtr(code)
		if r, ok := avsResults[code]; ok {
			v.AVSResultMessage = domain.StringPtr(r.message)
			v.AVSResultStreetMatch = domain.StringPtr(r.streetMatch)
			v.AVSResultPostalMatch = domain.StringPtr(r.postalMatch)
		}
	}

	if code := strings.ToUpper(strings.TrimSpace(cvCode)); code != "" {
		v.CVVResultCode = domain.StringPtr(code)
		if msg, ok := cvvResults[code]; ok {
			v.CVVResultMessage = domain.StringPtr(msg)
		}
	}

	return v
}
