package loaders

/**
 * @brief A loaded asset. Data holds the decoded payload, whose type depends
 * on the loader that produced it.
 */
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}
