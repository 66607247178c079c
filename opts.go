package seekly

// ClientOpt is an option for configuring a client
type ClientOpt func(c *Client)

// WithLogger overrides the default logger
func WithLogger(logger Logger) ClientOpt {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTransport overrides the default http transport
func WithTransport(transport Transport) ClientOpt {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithRegistry attaches a collection registry used to validate queries
func WithRegistry(registry Registry) ClientOpt {
	return func(c *Client) {
		c.registry = registry
	}
}

// WithCache attaches a result cache consulted read-through for
// non-generative queries
func WithCache(cache Cache) ClientOpt {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithCredentials overrides the credential provider derived from the config
func WithCredentials(creds CredentialProvider) ClientOpt {
	return func(c *Client) {
		c.creds = creds
	}
}
