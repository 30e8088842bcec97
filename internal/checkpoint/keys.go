package checkpoint

// Metadata keys written by Save and read by Load.
const (
	Architecture = "quill"

	keyArch         = "general.architecture"
	keyName         = "general.name"
	keyModelType    = "quill.model_type"
	keyEmbedding    = "quill.embedding_size"
	keyAuthorEmbed  = "quill.author_embedding_size"
	keyHidden       = "quill.hidden_size"
	keyLayers       = "quill.layers"
	keyEncHidden    = "quill.encoder.hidden_size"
	keyEncLayers    = "quill.encoder.layers"
	keyMaxSeqLen    = "quill.max_seq_len"
	keySoftmaxScale = "quill.softmax_scale"
	keyAtoms        = "quill.atoms"
	keyDataset      = "quill.dataset_file"
	keyStart        = "quill.start"
	keyEnd          = "quill.end"
	keyVocabAtoms   = "quill.vocab.atoms"
	keyVocabAuthors = "quill.vocab.authors"

	// Older checkpoints nest the index maps under a misc section.
	keyMiscAtoms   = "quill.misc.vocab.atoms"
	keyMiscAuthors = "quill.misc.vocab.authors"
)
