/*
Package tls serves the proxy over HTTPS when proxy.tls.enabled is set.

	tlsConfig, reloader, err := tls.NewServerConfig(cfg.Proxy.TLS)
	if err != nil {
		return err
	}
	defer reloader.Close()
	httpServer.TLSConfig = tlsConfig

The key pair is loaded once at startup and validated for its validity
period. With watch_certs, the certificate directory is watched with
fsnotify and the pair is reloaded after changes settle; a failed reload
keeps serving the previous certificate. Certificates within 30 days of
expiry are logged at warn level on every load.
*/
package tls
