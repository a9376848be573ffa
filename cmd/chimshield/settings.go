package main

type Settings struct {
	Port        int    `env:"PORT,default=8000"`
	JWTSecret   string `env:"JWT_SECRET,required=true"`
	BasePath    string `env:"BASE_PATH,default=/"`
	LogEncoding string `env:"LOG_ENCODING,default=console"`

	// When set, the message log is backed by MongoDB instead of process
	// memory.
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE,default=chimshield"`

	AdminName     string `env:"ADMIN_NAME,default=Admin"`
	AdminEmail    string `env:"ADMIN_EMAIL,default=admin@chimshield.com"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}
