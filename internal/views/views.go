// Package views renders the few HTML pages the route guards show in place
// of a guarded page.
package views

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">%s
    <title>%s</title>
    <style>
        * { box-sizing: border-box; }
        body { font-family: system-ui, -apple-system, sans-serif; background: #f9fafb; color: #374151; margin: 0; padding: 40px 20px; min-height: 100vh; }
        .container { max-width: 420px; margin: 0 auto; background: #fff; border: 1px solid #e5e7eb; border-radius: 8px; padding: 40px 32px; text-align: center; }
        h1 { font-size: 20px; font-weight: 600; color: %s; margin: 0 0 8px 0; }
        .subtitle { color: #6b7280; font-size: 14px; margin: 0 0 16px 0; }
        .spinner { width: 32px; height: 32px; margin: 0 auto 24px; border: 3px solid #e5e7eb; border-top-color: #374151; border-radius: 50%%; animation: spin 0.8s linear infinite; }
        a.button { display: inline-block; background: #374151; color: #fff; border-radius: 4px; padding: 8px 16px; font-size: 13px; text-decoration: none; }
        @keyframes spin { to { transform: rotate(360deg); } }
    </style>
</head>
<body>
    <div class="container">%s
    </div>
</body>
</html>`

// Loading is shown while the session or the role is still being resolved.
// The page reloads itself after refreshSeconds.
func Loading(path string, refreshSeconds int) string {
	refresh := fmt.Sprintf(`
    <meta http-equiv="refresh" content="%d;url=%s">`, refreshSeconds, html.EscapeString(path))
	body := `
        <div class="spinner"></div>
        <h1>Loading</h1>
        <p class="subtitle">Checking your account...</p>`
	return fmt.Sprintf(pageTemplate, refresh, "Loading - BookWagon", "#111827", body)
}

// Forbidden is rendered in place when the principal lacks the required role.
func Forbidden(requiredRole string) string {
	body := fmt.Sprintf(`
        <h1>Access denied</h1>
        <p class="subtitle">This page is only available to %s accounts.</p>
        <a class="button" href="/">Back to home</a>`, html.EscapeString(requiredRole))
	return fmt.Sprintf(pageTemplate, "", "Forbidden - BookWagon", "#991b1b", body)
}

// Login renders the sign-in form. The form and the Google button talk to the
// JSON auth endpoints and then follow the returned redirect.
func Login(next string, google bool, errMsg string) string {
	errorBlock := ""
	if errMsg != "" {
		errorBlock = fmt.Sprintf(`
        <p class="subtitle" style="color:#991b1b">%s</p>`, html.EscapeString(errMsg))
	}

	googleBlock := ""
	if google {
		googleBlock = fmt.Sprintf(`
        <p class="subtitle">or</p>
        <a class="button" href="#" onclick="google(); return false;">Continue with Google</a>
        <script>
            function google() {
                fetch('/api/v1/auth/google/consent?next=' + encodeURIComponent(%s))
                    .then(function(r) { return r.json(); })
                    .then(function(d) { window.location.href = d.url; });
            }
        </script>`, jsString(next))
	}

	body := fmt.Sprintf(`
        <h1>Sign in to BookWagon</h1>%s
        <form id="login" style="display:flex;flex-direction:column;gap:8px;margin-bottom:16px">
            <input name="email" type="email" placeholder="Email" required>
            <input name="password" type="password" placeholder="Password" required>
            <button class="button" type="submit">Sign in</button>
        </form>%s
        <script>
            document.getElementById('login').addEventListener('submit', function(e) {
                e.preventDefault();
                var f = e.target;
                fetch('/api/v1/auth/login', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({email: f.email.value, password: f.password.value, next: %s})
                }).then(function(r) { return r.json(); }).then(function(d) {
                    if (d.redirect) { window.location.href = d.redirect; }
                    else { window.location.href = '?error=' + encodeURIComponent(d.error || 'Sign-in failed'); }
                });
            });
        </script>`, errorBlock, googleBlock, jsString(next))
	return fmt.Sprintf(pageTemplate, "", "Sign in - BookWagon", "#111827", body)
}

// Dashboard is the shell of a signed-in page.
func Dashboard(title, displayName, role string) string {
	body := fmt.Sprintf(`
        <h1>%s</h1>
        <p class="subtitle">Signed in as %s (%s)</p>
        <a class="button" href="#" onclick="fetch('/api/v1/auth/logout', {method: 'POST'}).then(function() { window.location.href = '/auth/login'; }); return false;">Sign out</a>`,
		html.EscapeString(title), html.EscapeString(displayName), html.EscapeString(role))
	return fmt.Sprintf(pageTemplate, "", html.EscapeString(title)+" - BookWagon", "#111827", body)
}

// jsString quotes s for use inside an inline script.
func jsString(s string) string {
	return strings.ReplaceAll(strconv.Quote(s), "<", `\u003c`)
}
