// texrelay is an HTTP proxy that compiles LaTeX documents to PDF through an
// external compiler service.
//
// Usage:
//
//	# Start the proxy from defaults and TEXRELAY_* / LATEX_API_KEY
//	texrelay run
//
//	# Start with a configuration file
//	texrelay run --config /etc/texrelay/config.yaml
//
//	# Check a configuration file
//	texrelay validate --config config.yaml
//
//	# Compile documents through a running proxy
//	texrelay compile paper.tex --url http://localhost:8080/latex-convert
//
//	# Generate an API key
//	texrelay keys generate
package main

func main() {
	Execute()
}
