package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide explains how to copy the session cookie from a
// browser for static session mode.
func ShowCookieExtractionGuide(w io.Writer, cookieName string) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SIM COMPANIES SESSION COOKIE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Static session mode skips the browser login and reuses a cookie")
	fmt.Fprintln(w, "from a browser where you are already signed in.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Sign in at https://www.simcompanies.com/signin/")
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on macOS)")
	fmt.Fprintln(w, "3. Chrome/Edge: Application tab -> Cookies -> https://www.simcompanies.com")
	fmt.Fprintln(w, "   Firefox: Storage tab -> Cookies -> https://www.simcompanies.com")
	fmt.Fprintf(w, "4. Copy the value of the %q cookie\n", cookieName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Then either run 'simcollect auth login --cookie <value>' or export")
	fmt.Fprintln(w, "SIMCOLLECT_SESSION_COOKIE=<value> with session mode set to static.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The cookie grants full access to your account. Do not share it.")
	fmt.Fprintln(w, "It expires; copy a fresh one when requests start failing with 401.")
	fmt.Fprintln(w, rule)
}
