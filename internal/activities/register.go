package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.MarkJobProcessingActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.ChunkTextActivity)
	w.RegisterActivity(a.EmbedChunksActivity)
	w.RegisterActivity(a.PersistChunksActivity)
	w.RegisterActivity(a.UpdateDocumentStatusActivity)
	w.RegisterActivity(a.RecordFileResultActivity)
	w.RegisterActivity(a.CompleteJobActivity)
	w.RegisterActivity(a.MarkJobFailedActivity)
	w.RegisterActivity(a.MarkJobCancelledActivity)
	w.RegisterActivity(a.RemoveSpoolFileActivity)
	w.RegisterActivity(a.SearchChunksActivity)
}
