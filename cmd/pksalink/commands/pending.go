package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/katzenpost/qrterminal"

	"pksalink/internal/domain"
)

// showPending tells the user what the signer is being asked and, for logins,
// prints the auth link as a QR code.
func showPending(ev domain.Pending, _ func()) {
	if ev.Auth != nil {
		uri := ev.Auth.URI()
		qrterminal.GenerateWithConfig(uri, qrterminal.Config{
			Level:      qrterminal.L,
			Writer:     os.Stdout,
			HalfBlocks: true,
			QuietZone:  1,
		})
		fmt.Printf("\nScan the code with your signer app, or open:\n%s\n\n", uri)
	}
	fmt.Printf("Waiting for %s approval (request %s, expires in %s). Ctrl-C cancels.\n",
		ev.Kind, ev.UUID, time.Until(ev.ExpiresAt).Round(time.Second))
}
