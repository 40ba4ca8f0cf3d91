package errpage

import "github.com/ember-web/ember/http/status"

const style = `body { font-family: Arial, sans-serif; line-height: 1.6; margin: 0; padding: 20px; color: #333; }
h1 { color: #d9534f; }
.container { max-width: 800px; margin: 0 auto; }`

func page(title, explanation string) string {
	return `<!DOCTYPE html>
<html>
<head>
    <title>` + title + `</title>
    <style>` + style + `</style>
</head>
<body>
    <div class="container">
        <h1>` + title + `</h1>
        <p>` + explanation + `</p>
        <hr>
    </div>
</body>
</html>`
}

var pages = map[status.Code]string{
	status.BadRequest: page("400 Bad Request",
		"Your client sent a malformed or illegal request."),
	status.Forbidden: page("403 Forbidden",
		"You don't have permission to access this resource."),
	status.NotFound: page("404 Not Found",
		"The requested resource was not found on this server."),
	status.MethodNotAllowed: page("405 Method Not Allowed",
		"The requested method is not supported for this resource."),
	status.InternalServerError: page("500 Internal Server Error",
		"The server encountered an unexpected condition."),
	status.NotImplemented: page("501 Not Implemented",
		"The server does not support the functionality required to fulfill the request."),
}

// Get returns a canned HTML body for the error code. Codes without a
// dedicated page fall back to the 500 page.
func Get(code status.Code) string {
	if p, ok := pages[code]; ok {
		return p
	}

	return pages[status.InternalServerError]
}
