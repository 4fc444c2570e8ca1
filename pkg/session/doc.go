// Package session obtains the cookies that authenticate API requests.
//
// A Provider turns an Identity into a Bundle of cookies. ChromeProvider
// drives a real browser through the sign-in form, waits for the site to set
// its cookies and reads them back over the DevTools protocol; when sign-in
// fails it condenses the page into a short reason. StaticProvider serves
// cookies obtained elsewhere. WithRetry retries transient login failures.
//
// The collector acquires one Bundle at start-up and closes the provider once
// on every exit path.
package session
